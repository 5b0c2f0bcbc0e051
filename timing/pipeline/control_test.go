package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Control", func() {
	Describe("DecodeControl", func() {
		rType := pipeline.ControlSignals{RegWrite: true, RegDst: true, ALUOp: 2}

		DescribeTable("should produce the control bundle for each opcode",
			func(op insts.Op, expected pipeline.ControlSignals) {
				ctrl, err := pipeline.DecodeControl(op)

				Expect(err).NotTo(HaveOccurred())
				Expect(ctrl).To(Equal(expected))
			},
			Entry("ADD", insts.OpADD, rType),
			Entry("SUB", insts.OpSUB, rType),
			Entry("AND", insts.OpAND, rType),
			Entry("OR", insts.OpOR, rType),
			Entry("XOR", insts.OpXOR, rType),
			Entry("SLT", insts.OpSLT, rType),
			Entry("SLL", insts.OpSLL, rType),
			Entry("SRL", insts.OpSRL, rType),
			Entry("ADDI", insts.OpADDI,
				pipeline.ControlSignals{RegWrite: true, ALUSrc: true}),
			Entry("ORI", insts.OpORI,
				pipeline.ControlSignals{RegWrite: true, ALUSrc: true, ALUOp: 1}),
			Entry("LW", insts.OpLW, pipeline.ControlSignals{
				RegWrite: true, MemRead: true, ALUSrc: true, MemToReg: true,
			}),
			Entry("SW", insts.OpSW,
				pipeline.ControlSignals{MemWrite: true, ALUSrc: true}),
			Entry("BEQ", insts.OpBEQ,
				pipeline.ControlSignals{Branch: true, ALUOp: 1}),
			Entry("BGEZ", insts.OpBGEZ,
				pipeline.ControlSignals{Branch: true, ALUOp: 5}),
			Entry("J", insts.OpJ, pipeline.ControlSignals{Jump: true}),
		)

		It("should reject an opcode outside the instruction set", func() {
			_, err := pipeline.DecodeControl(insts.OpUnknown)
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})

		It("should cover every supported opcode", func() {
			for _, op := range insts.AllOps() {
				_, err := pipeline.DecodeControl(op)
				Expect(err).NotTo(HaveOccurred(), op.String())
			}
		})
	})

	Describe("ArithmeticOp", func() {
		DescribeTable("should map opcodes to ALU operations",
			func(op insts.Op, expected emu.ALUOp) {
				aluOp, err := pipeline.ArithmeticOp(op)

				Expect(err).NotTo(HaveOccurred())
				Expect(aluOp).To(Equal(expected))
			},
			Entry("ADD", insts.OpADD, emu.ALUAdd),
			Entry("ADDI", insts.OpADDI, emu.ALUAdd),
			Entry("LW", insts.OpLW, emu.ALUAdd),
			Entry("SW", insts.OpSW, emu.ALUAdd),
			Entry("SUB", insts.OpSUB, emu.ALUSub),
			Entry("BEQ", insts.OpBEQ, emu.ALUSub),
			Entry("AND", insts.OpAND, emu.ALUAnd),
			Entry("OR", insts.OpOR, emu.ALUOr),
			Entry("ORI", insts.OpORI, emu.ALUOr),
			Entry("XOR", insts.OpXOR, emu.ALUXor),
			Entry("SLT", insts.OpSLT, emu.ALUSlt),
			Entry("BGEZ", insts.OpBGEZ, emu.ALUSlt),
			Entry("SLL", insts.OpSLL, emu.ALUSll),
			Entry("SRL", insts.OpSRL, emu.ALUSrl),
			Entry("J", insts.OpJ, emu.ALUAdd),
		)

		It("should reject an opcode outside the instruction set", func() {
			_, err := pipeline.ArithmeticOp(insts.Op(200))
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})
	})
})
