package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corpusd/corpusd/pkg/config"
)

var _ = Describe("Configer", func() {
	var (
		dir   string
		cfger *config.Configer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		cfger, err = config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no file exists", func() {
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Storage.Catalog).To(Equal("sqlite"))
			Expect(cfg.VectorStore.Provider).To(Equal("sqlite"))
			Expect(cfg.VectorStore.Metric).To(Equal("cosine"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
			Expect(cfg.Ingest.ChunkStrategy).To(Equal("recursive"))
			Expect(cfg.Retrieval.TopK).To(Equal(uint(5)))
			Expect(cfg.Events.Provider).To(Equal("nop"))
		})

		It("fills unset fields from defaults", func() {
			raw := []byte("[embedding]\nmodel = \"custom-model\"\n")
			Expect(os.WriteFile(cfger.GetTarget(), raw, 0o600)).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Embedding.Model).To(Equal("custom-model"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Retrieval.MaxChunksPerDoc).To(Equal(uint(2)))
		})

		It("lets environment variables override file values", func() {
			raw := []byte("[llm]\nmodel = \"from-file\"\n")
			Expect(os.WriteFile(cfger.GetTarget(), raw, 0o600)).To(Succeed())

			GinkgoT().Setenv("CORPUSD_LLM_MODEL", "from-env")

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Model).To(Equal("from-env"))
		})

		It("fails on malformed TOML", func() {
			Expect(os.WriteFile(cfger.GetTarget(), []byte("not [valid"), 0o600)).To(Succeed())

			_, err := cfger.LoadConfig()
			Expect(err).To(HaveOccurred())
		})

		It("rejects a config from the future", func() {
			raw := []byte("version = 99\n")
			Expect(os.WriteFile(cfger.GetTarget(), raw, 0o600)).To(Succeed())

			_, err := cfger.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config", func() {
			cfg := config.NewDefaultConfig()
			cfg.Embedding.Dimensions = 1536
			cfg.Storage.Catalog = "memory"

			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Embedding.Dimensions).To(Equal(uint(1536)))
			Expect(loaded.Storage.Catalog).To(Equal("memory"))
		})

		It("rejects a nil config", func() {
			Expect(cfger.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("round-trips a string key", func() {
			Expect(cfger.SetConfigValue("llm.model", "llama3.3")).To(Succeed())

			got, err := cfger.GetConfigValue("llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("llama3.3"))
		})

		It("round-trips a numeric key", func() {
			Expect(cfger.SetConfigValue("retrieval.top_k", "12")).To(Succeed())

			got, err := cfger.GetConfigValue("retrieval.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("12"))
		})

		It("rejects an unknown key", func() {
			Expect(cfger.SetConfigValue("nope.nope", "x")).To(MatchError(ContainSubstring("unknown config key")))

			_, err := cfger.GetConfigValue("nope.nope")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects a non-numeric value for a numeric key", func() {
			err := cfger.SetConfigValue("embedding.dimensions", "lots")
			Expect(err).To(MatchError(ContainSubstring("invalid value")))
		})

		It("never persists environment overrides to the file", func() {
			GinkgoT().Setenv("CORPUSD_EMBEDDING_MODEL", "env-model")

			Expect(cfger.SetConfigValue("llm.model", "llama3.3")).To(Succeed())

			raw, err := os.ReadFile(cfger.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).NotTo(ContainSubstring("env-model"))
		})

		It("preserves other keys across writes", func() {
			Expect(cfger.SetConfigValue("llm.model", "llama3.3")).To(Succeed())
			Expect(cfger.SetConfigValue("retrieval.top_k", "9")).To(Succeed())

			got, err := cfger.GetConfigValue("llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("llama3.3"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("is sorted and covers every section", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"storage.catalog",
				"vector_store.provider",
				"embedding.model",
				"llm.provider",
				"ingest.chunk_strategy",
				"retrieval.top_k",
				"events.topic",
			))

			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("Dir", func() {
		It("returns the directory holding config.toml", func() {
			Expect(cfger.Dir()).To(Equal(filepath.Dir(cfger.GetTarget())))
			Expect(cfger.GetTarget()).To(Equal(filepath.Join(dir, "config.toml")))
		})
	})
})
