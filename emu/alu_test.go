package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	DescribeTable("operations",
		func(op emu.ALUOp, a, b, want emu.Word) {
			got, err := alu.Execute(op, a, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(alu.Result()).To(Equal(want))
		},
		Entry("add", emu.ALUAdd, emu.Word(10), emu.Word(20), emu.Word(30)),
		Entry("add wraps", emu.ALUAdd, emu.Word(0x7FFFFFFF), emu.Word(1), emu.Word(-0x80000000)),
		Entry("sub", emu.ALUSub, emu.Word(30), emu.Word(10), emu.Word(20)),
		Entry("and", emu.ALUAnd, emu.Word(50), emu.Word(20), emu.Word(16)),
		Entry("or", emu.ALUOr, emu.Word(0b1010), emu.Word(0b0101), emu.Word(0b1111)),
		Entry("xor", emu.ALUXor, emu.Word(0b1100), emu.Word(0b1010), emu.Word(0b0110)),
		Entry("slt true", emu.ALUSlt, emu.Word(-1), emu.Word(0), emu.Word(1)),
		Entry("slt false", emu.ALUSlt, emu.Word(5), emu.Word(5), emu.Word(0)),
		Entry("sll", emu.ALUSll, emu.Word(65), emu.Word(1), emu.Word(130)),
		Entry("sll uses low five bits", emu.ALUSll, emu.Word(1), emu.Word(33), emu.Word(2)),
		Entry("srl zero-fills", emu.ALUSrl, emu.Word(-1), emu.Word(28), emu.Word(0xF)),
		Entry("srl positive", emu.ALUSrl, emu.Word(130), emu.Word(1), emu.Word(65)),
	)

	It("should set the zero flag only for zero results", func() {
		_, err := alu.Execute(emu.ALUSub, 5, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(alu.Zero()).To(BeTrue())

		_, err = alu.Execute(emu.ALUSub, 5, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(alu.Zero()).To(BeFalse())
	})

	It("should reject unknown operations and keep the previous flag", func() {
		_, _ = alu.Execute(emu.ALUSub, 1, 1)

		_, err := alu.Execute(emu.ALUOp(8), 1, 2)
		Expect(err).To(MatchError(emu.ErrUnknownOperation))
		Expect(alu.Zero()).To(BeTrue())
	})

	It("should name operations", func() {
		Expect(emu.ALUSrl.String()).To(Equal("srl"))
		Expect(emu.ALUOp(9).String()).To(Equal("ALUOp(9)"))
	})
})
