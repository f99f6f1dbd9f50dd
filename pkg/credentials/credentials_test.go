package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corpusd/corpusd/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		dir string
		mgr *credentials.Manager
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("fails on malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not [valid"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SetKey and GetKey", func() {
		It("round-trips a stored key", func() {
			Expect(mgr.SetKey("openai", "sk-test-123")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-test-123"))
		})

		It("returns empty for an unknown provider", func() {
			key, err := mgr.GetKey("missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("overwrites an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-new")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new"))
		})

		It("writes the file with restrictive permissions", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})
	})

	Describe("RemoveKey", func() {
		It("deletes a stored credential", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("is a no-op for an absent provider", func() {
			Expect(mgr.RemoveKey("missing")).To(Succeed())
		})
	})

	Describe("ListProviders", func() {
		It("returns stored provider names sorted", func() {
			Expect(mgr.SetKey("openai", "sk-a")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "sk-b")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"anthropic", "openai"}))
		})
	})

	Describe("InjectEnv", func() {
		It("exports stored keys into the environment", func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "")
			Expect(os.Unsetenv("OPENAI_API_KEY")).To(Succeed())

			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			Expect(mgr.InjectEnv()).To(Succeed())

			Expect(os.Getenv("OPENAI_API_KEY")).To(Equal("sk-stored"))
		})

		It("never overrides a variable already set", func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "sk-from-env")

			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			Expect(mgr.InjectEnv()).To(Succeed())

			Expect(os.Getenv("OPENAI_API_KEY")).To(Equal("sk-from-env"))
		})

		It("skips providers without a known environment variable", func() {
			Expect(mgr.SetKey("custom", "sk-x")).To(Succeed())
			Expect(mgr.InjectEnv()).To(Succeed())
		})
	})

	Describe("GetTarget", func() {
		It("points at credentials.toml in the target directory", func() {
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(dir, "credentials.toml")))
		})
	})
})

var _ = Describe("Providers", func() {
	It("supports openai", func() {
		Expect(credentials.SupportedProviders()).To(ContainElement("openai"))
		Expect(credentials.IsSupportedProvider("openai")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("nope")).To(BeFalse())
	})

	It("maps providers to environment variables", func() {
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("nope")).To(BeEmpty())
	})
})
