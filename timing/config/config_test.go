package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/config"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	It("should default to both hazard mechanisms on", func() {
		c := config.DefaultConfig()

		Expect(c.HazardDetection).To(BeTrue())
		Expect(c.Forwarding).To(BeTrue())
		Expect(c.MemoryWords).To(Equal(emu.DefaultMemoryWords))
		Expect(c.MaxCycles).To(BeZero())
		Expect(c.Validate()).To(Succeed())
	})

	Describe("LoadConfig", func() {
		It("should load JSON and keep defaults for missing fields", func() {
			path := write("cfg.json", `{"forwarding": false, "registers": {"1": 10, "2": 20}}`)

			c, err := config.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.Forwarding).To(BeFalse())
			Expect(c.HazardDetection).To(BeTrue())
			Expect(c.Registers).To(Equal(map[int]emu.Word{1: 10, 2: 20}))
		})

		It("should load YAML by extension", func() {
			path := write("cfg.yaml", "hazard_detection: false\nmax_cycles: 50\nmemory:\n  0: 100\n  4: 200\n")

			c, err := config.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.HazardDetection).To(BeFalse())
			Expect(c.MaxCycles).To(Equal(uint64(50)))
			Expect(c.Memory).To(Equal(map[int]emu.Word{0: 100, 4: 200}))
		})

		It("should report a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(dir, "absent.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})

		It("should report malformed content", func() {
			_, err := config.LoadConfig(write("bad.json", "{"))
			Expect(err).To(HaveOccurred())
		})
	})

	DescribeTable("SaveConfig should round-trip",
		func(name string) {
			c := config.DefaultConfig()
			c.Forwarding = false
			c.SetRegister(3, -7)
			c.SetMemory(8, 42)
			path := filepath.Join(dir, name)

			Expect(c.SaveConfig(path)).To(Succeed())
			loaded, err := config.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		},
		Entry("JSON", "out.json"),
		Entry("YAML", "out.yml"),
	)

	Describe("Validate", func() {
		DescribeTable("should reject unusable values",
			func(mutate func(*config.Config)) {
				c := config.DefaultConfig()
				mutate(c)
				Expect(c.Validate()).To(MatchError(config.ErrInvalidConfig))
			},
			Entry("no memory", func(c *config.Config) { c.MemoryWords = 0 }),
			Entry("register 32", func(c *config.Config) { c.SetRegister(32, 1) }),
			Entry("negative register", func(c *config.Config) { c.SetRegister(-1, 1) }),
			Entry("address past the end", func(c *config.Config) {
				c.MemoryWords = 4
				c.SetMemory(16, 1)
			}),
		)
	})

	It("should clone without sharing maps", func() {
		c := config.DefaultConfig()
		c.SetRegister(1, 1)

		clone := c.Clone()
		clone.SetRegister(1, 2)

		Expect(c.Registers[1]).To(Equal(emu.Word(1)))
	})

	It("should apply the initial machine state", func() {
		c := config.DefaultConfig()
		c.SetRegister(1, 5)
		c.SetMemory(20, 50)
		regFile := emu.NewRegFile()
		memory := emu.NewMemory(c.MemoryWords)

		Expect(c.Apply(regFile, memory)).To(Succeed())

		Expect(regFile.Read(1)).To(Equal(emu.Word(5)))
		Expect(memory.Load(20)).To(Equal(emu.Word(50)))
	})
})
