package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Pipeline Stages", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		memory = emu.NewMemory(0)
	})

	decoded := func(line string, pc int) pipeline.IDEXEntry {
		entry, err := pipeline.NewDecodeStage(regFile).Decode(pipeline.IFIDEntry{
			PC: pc, Inst: mustParseLine(line),
		})
		Expect(err).NotTo(HaveOccurred())
		return entry
	}

	Describe("FetchStage", func() {
		It("should fetch sequential instructions", func() {
			program := mustParse("ADDI $1, $0, 1", "ADDI $2, $0, 2")
			fetchStage := pipeline.NewFetchStage(program)

			inst, ok := fetchStage.Fetch(1)

			Expect(ok).To(BeTrue())
			Expect(inst).To(BeIdenticalTo(program[1]))
		})

		It("should report the end of the program", func() {
			fetchStage := pipeline.NewFetchStage(mustParse("J 0"))

			_, ok := fetchStage.Fetch(1)
			Expect(ok).To(BeFalse())
			_, ok = fetchStage.Fetch(-1)
			Expect(ok).To(BeFalse())
		})

		It("should treat an empty slot as the end of the program", func() {
			fetchStage := pipeline.NewFetchStage([]*insts.Instruction{nil, mustParseLine("J 0")})

			_, ok := fetchStage.Fetch(0)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("DecodeStage", func() {
		It("should read register operands and attach control signals", func() {
			Expect(regFile.Write(1, 10)).To(Succeed())
			Expect(regFile.Write(2, 20)).To(Succeed())

			entry := decoded("ADD $3, $1, $2", 4)

			Expect(entry.PC).To(Equal(4))
			Expect(entry.RsValue).To(Equal(emu.Word(10)))
			Expect(entry.RtValue).To(Equal(emu.Word(20)))
			Expect(entry.Rd).To(Equal(3))
			Expect(entry.Ctrl.RegDst).To(BeTrue())
		})

		It("should reject out-of-range registers", func() {
			_, err := pipeline.NewDecodeStage(regFile).Decode(pipeline.IFIDEntry{
				Inst: mustParseLine("ADD $1, $40, $2"),
			})
			Expect(err).To(MatchError(emu.ErrInvalidRegister))
		})

		It("should reject an unknown opcode", func() {
			_, err := pipeline.NewDecodeStage(regFile).Decode(pipeline.IFIDEntry{
				Inst: &insts.Instruction{Op: insts.OpUnknown},
			})
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})
	})

	Describe("ExecuteStage", func() {
		var executeStage *pipeline.ExecuteStage

		BeforeEach(func() {
			executeStage = pipeline.NewExecuteStage(emu.NewALU())
		})

		It("should write R-type results to rd", func() {
			result, err := executeStage.Execute(decoded("SUB $4, $3, $1", 0), 30, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(emu.Word(20)))
			Expect(result.WriteReg).To(Equal(4))
			Expect(result.BranchTaken).To(BeFalse())
		})

		It("should use the immediate and write rt for ADDI", func() {
			result, err := executeStage.Execute(decoded("ADDI $1, $1, -1", 0), 0, 99)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(emu.Word(-1)))
			Expect(result.WriteReg).To(Equal(1))
		})

		It("should shift rt by the shift amount", func() {
			result, err := executeStage.Execute(decoded("SLL $7, $6, 3", 0), 1000, 6)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(emu.Word(48)))
		})

		It("should compute the address and carry the store value", func() {
			result, err := executeStage.Execute(decoded("SW $3, 8($1)", 0), 4, 77)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ALUResult).To(Equal(emu.Word(12)))
			Expect(result.StoreValue).To(Equal(emu.Word(77)))
		})

		It("should take BEQ on equal operands", func() {
			result, err := executeStage.Execute(decoded("BEQ $1, $2, 1", 2), 5, 5)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeTrue())
			Expect(result.BranchTarget).To(Equal(4))
		})

		It("should not take BEQ on different operands", func() {
			result, err := executeStage.Execute(decoded("BEQ $1, $2, 1", 2), 5, 6)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeFalse())
		})

		DescribeTable("should take BGEZ on the sign of rs",
			func(rs emu.Word, taken bool) {
				result, err := executeStage.Execute(decoded("BGEZ $1, -3", 5), rs, 0)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.BranchTaken).To(Equal(taken))
				Expect(result.BranchTarget).To(Equal(3))
			},
			Entry("positive", emu.Word(2), true),
			Entry("zero", emu.Word(0), true),
			Entry("negative", emu.Word(-1), false),
		)

		It("should jump to the absolute address", func() {
			result, err := executeStage.Execute(decoded("J 3", 1), 0, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.BranchTaken).To(BeTrue())
			Expect(result.BranchTarget).To(Equal(3))
		})
	})

	Describe("MemoryStage", func() {
		var memoryStage *pipeline.MemoryStage

		BeforeEach(func() {
			memoryStage = pipeline.NewMemoryStage(memory)
		})

		It("should load from the computed address", func() {
			Expect(memory.Store(4, 200)).To(Succeed())

			result, err := memoryStage.Access(pipeline.EXMEMEntry{
				ALUResult: 4, Ctrl: pipeline.ControlSignals{MemRead: true},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemData).To(Equal(emu.Word(200)))
		})

		It("should store the carried value", func() {
			_, err := memoryStage.Access(pipeline.EXMEMEntry{
				ALUResult: 8, StoreValue: 42,
				Ctrl: pipeline.ControlSignals{MemWrite: true},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(memory.Load(8)).To(Equal(emu.Word(42)))
		})

		It("should report out-of-bounds accesses", func() {
			_, err := memoryStage.Access(pipeline.EXMEMEntry{
				ALUResult: -8, Ctrl: pipeline.ControlSignals{MemRead: true},
			})
			Expect(err).To(MatchError(emu.ErrMemoryOutOfBounds))
		})

		It("should pass non-memory instructions through", func() {
			result, err := memoryStage.Access(pipeline.EXMEMEntry{ALUResult: 1 << 20})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemData).To(BeZero())
		})
	})

	Describe("WritebackStage", func() {
		It("should write the selected value when RegWrite is set", func() {
			written, err := pipeline.NewWritebackStage(regFile).Writeback(pipeline.MEMWBEntry{
				WriteReg: 5, ALUResult: 1, MemData: 50,
				Ctrl: pipeline.ControlSignals{RegWrite: true, MemToReg: true},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(BeTrue())
			Expect(regFile.Read(5)).To(Equal(emu.Word(50)))
		})

		It("should skip instructions without RegWrite", func() {
			written, err := pipeline.NewWritebackStage(regFile).Writeback(pipeline.MEMWBEntry{
				WriteReg: 5, ALUResult: 1,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(BeFalse())
			Expect(regFile.Read(5)).To(BeZero())
		})
	})
})
