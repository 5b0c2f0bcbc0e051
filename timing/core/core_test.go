package core_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
)

func program(lines ...string) *loader.Program {
	prog, err := loader.FromLines(lines)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return prog
}

var _ = Describe("Core", func() {
	var (
		cfg *config.Config
		c   *core.Core
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	JustBeforeEach(func() {
		var err error
		c, err = core.NewCore(cfg, core.WithLogger(GinkgoLogr))
		Expect(err).NotTo(HaveOccurred())
	})

	reg := func(idx int) emu.Word {
		v, err := c.RegFile().Read(idx)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	It("should create a core with pipeline", func() {
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.ID()).NotTo(BeEmpty())
		Expect(c.Halted()).To(BeFalse())
	})

	It("should give each session its own ID", func() {
		other, err := core.NewCore(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(other.ID()).NotTo(Equal(c.ID()))
	})

	It("should reject an invalid configuration", func() {
		bad := config.DefaultConfig()
		bad.MemoryWords = 0

		_, err := core.NewCore(bad)

		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	Context("with initial state in the configuration", func() {
		BeforeEach(func() {
			cfg.SetRegister(1, 10)
			cfg.SetRegister(2, 20)
			cfg.SetMemory(0, 100)
		})

		It("should apply it at construction", func() {
			Expect(reg(1)).To(Equal(emu.Word(10)))
			Expect(c.Memory().Load(0)).To(Equal(emu.Word(100)))
		})

		It("should run a program to completion on the engine", func() {
			c.Load(program("ADD $3, $1, $2", "SUB $4, $3, $1"))

			Expect(c.Run()).To(Succeed())

			Expect(c.Halted()).To(BeTrue())
			Expect(reg(3)).To(Equal(emu.Word(30)))
			Expect(reg(4)).To(Equal(emu.Word(20)))
			Expect(c.Stats().Cycles).To(Equal(uint64(6)))
		})

		It("should restore the initial state on Reset", func() {
			c.Load(program("ADDI $1, $1, 5", "SW $1, 0($0)"))
			Expect(c.Run()).To(Succeed())
			Expect(reg(1)).To(Equal(emu.Word(15)))

			Expect(c.Reset()).To(Succeed())

			Expect(reg(1)).To(Equal(emu.Word(10)))
			Expect(c.Memory().Load(0)).To(Equal(emu.Word(100)))
			Expect(c.Halted()).To(BeFalse())
			Expect(c.Stats().Cycles).To(BeZero())

			Expect(c.Run()).To(Succeed())
			Expect(reg(1)).To(Equal(emu.Word(15)))
		})
	})

	It("should step one cycle at a time", func() {
		c.Load(program("ADDI $1, $0, 42"))

		for i := 0; i < 4; i++ {
			Expect(c.Step()).To(Succeed())
		}
		Expect(reg(1)).To(BeZero())
		Expect(c.Snapshot().Stages[4]).To(BeEmpty())

		Expect(c.Step()).To(Succeed())
		Expect(reg(1)).To(Equal(emu.Word(42)))
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Snapshot().Stages[4]).To(Equal("ADDI $1"))
	})

	It("should report pipeline errors from Run", func() {
		c.Load(program("LW $1, 40000($0)"))

		err := c.Run()

		Expect(err).To(MatchError(emu.ErrMemoryOutOfBounds))
		Expect(c.Err()).To(MatchError(emu.ErrMemoryOutOfBounds))
		Expect(c.Snapshot().Error).To(ContainSubstring("out of bounds"))
	})

	It("should apply hazard toggles to the pipeline", func() {
		c.SetHazardDetection(false)
		c.SetForwarding(false)

		Expect(c.Pipeline.HazardDetection()).To(BeFalse())
		Expect(c.Pipeline.Forwarding()).To(BeFalse())
		Expect(c.Config().Forwarding).To(BeFalse())
	})

	Context("with a cycle limit", func() {
		BeforeEach(func() {
			cfg.MaxCycles = 20
		})

		It("should stop an endless loop", func() {
			c.Load(program("ADDI $1, $1, 1", "J 0"))

			err := c.Run()

			Expect(err).To(MatchError(core.ErrCycleLimit))
			Expect(c.Stats().Cycles).To(Equal(uint64(20)))
			Expect(c.Halted()).To(BeFalse())
		})
	})

	It("should export a JSON snapshot", func() {
		c.Load(program("ADDI $1, $0, 7", "SW $1, 8($0)"))
		Expect(c.Run()).To(Succeed())

		data, err := json.Marshal(c.Snapshot())
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded["halted"]).To(BeTrue())
		Expect(decoded["session"]).To(Equal(c.ID()))
		Expect(decoded["memory"]).To(ConsistOf(
			map[string]any{"addr": float64(8), "value": float64(7)},
		))
		Expect(strings.Contains(string(data), `"stalls":0`)).To(BeTrue())
	})
})
