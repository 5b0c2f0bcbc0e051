package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Parser", func() {
	var parser *insts.Parser

	BeforeEach(func() {
		parser = insts.NewParser()
	})

	Describe("R-type", func() {
		It("should parse ADD $3, $1, $2", func() {
			inst, err := parser.ParseLine("ADD $3, $1, $2")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(3))
			Expect(inst.Rs).To(Equal(1))
			Expect(inst.Rt).To(Equal(2))
		})

		It("should parse lower-case mnemonics", func() {
			inst, err := parser.ParseLine("slt $5, $6, $7")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSLT))
		})

		It("should parse SLL $7, $6, 1 with rt as the shifted register", func() {
			inst, err := parser.ParseLine("SLL $7, $6, 1")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSLL))
			Expect(inst.Rd).To(Equal(7))
			Expect(inst.Rt).To(Equal(6))
			Expect(inst.Rs).To(Equal(0))
			Expect(inst.Shamt).To(Equal(int32(1)))
		})
	})

	Describe("I-type", func() {
		It("should parse ADDI with a negative immediate", func() {
			inst, err := parser.ParseLine("ADDI $1, $1, -1")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rt).To(Equal(1))
			Expect(inst.Rs).To(Equal(1))
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		It("should parse LW $4, 4($1)", func() {
			inst, err := parser.ParseLine("LW $4, 4($1)")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rt).To(Equal(4))
			Expect(inst.Rs).To(Equal(1))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		It("should parse SW $3, 0($0)", func() {
			inst, err := parser.ParseLine("SW $3, 0($0)")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Rt).To(Equal(3))
			Expect(inst.Rs).To(Equal(0))
		})

		It("should parse BEQ $1, $2, 1", func() {
			inst, err := parser.ParseLine("BEQ $1, $2, 1")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Rs).To(Equal(1))
			Expect(inst.Rt).To(Equal(2))
			Expect(inst.Imm).To(Equal(int32(1)))
		})

		It("should parse BGEZ $1, -3", func() {
			inst, err := parser.ParseLine("BGEZ $1, -3")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpBGEZ))
			Expect(inst.Rs).To(Equal(1))
			Expect(inst.Rt).To(Equal(0))
			Expect(inst.Imm).To(Equal(int32(-3)))
		})
	})

	Describe("J-type", func() {
		It("should parse J 3", func() {
			inst, err := parser.ParseLine("J 3")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpJ))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Address).To(Equal(3))
		})
	})

	Describe("blank and comment lines", func() {
		DescribeTable("yield no instruction and no error",
			func(line string) {
				inst, err := parser.ParseLine(line)
				Expect(err).NotTo(HaveOccurred())
				Expect(inst).To(BeNil())
			},
			Entry("empty", ""),
			Entry("whitespace", "   \t"),
			Entry("hash comment", "# Loop start (index 2)"),
			Entry("slash comment", "// exit"),
		)
	})

	Describe("errors", func() {
		It("should report unknown mnemonics", func() {
			_, err := parser.ParseLine("MUL $1, $2, $3")
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})

		It("should report missing operands", func() {
			_, err := parser.ParseLine("ADD $1, $2")
			Expect(err).To(MatchError(insts.ErrSyntax))
		})

		It("should report malformed registers", func() {
			_, err := parser.ParseLine("ADD $x, $2, $3")
			Expect(err).To(MatchError(insts.ErrSyntax))
		})

		It("should report malformed immediates", func() {
			_, err := parser.ParseLine("ADDI $1, $0, ten")
			Expect(err).To(MatchError(insts.ErrSyntax))
		})

		It("should leave register range checks to the register file", func() {
			inst, err := parser.ParseLine("ADD $40, $1, $2")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Rd).To(Equal(40))
		})
	})

	Describe("ParseProgram", func() {
		It("should keep one slot per line with nil for unparseable lines", func() {
			program, diags := parser.ParseProgram([]string{
				"ADDI $1, $0, 10",
				"BOGUS $1",
				"ADDI $2, $0, 20",
			})

			Expect(program).To(HaveLen(3))
			Expect(program[0].Op).To(Equal(insts.OpADDI))
			Expect(program[1]).To(BeNil())
			Expect(program[2].Op).To(Equal(insts.OpADDI))

			Expect(diags).To(HaveLen(1))
			Expect(diags[0].Line).To(Equal(1))
			Expect(diags[0].Text).To(Equal("BOGUS $1"))
			Expect(diags[0].Err).To(MatchError(insts.ErrUnknownOpcode))
			Expect(diags[0].Error()).To(ContainSubstring("line 1"))
		})

		It("should leave comment slots empty without diagnostics", func() {
			program, diags := parser.ParseProgram([]string{"# header", "J 0"})

			Expect(program[0]).To(BeNil())
			Expect(program[1].Op).To(Equal(insts.OpJ))
			Expect(diags).To(BeEmpty())
		})
	})
})
