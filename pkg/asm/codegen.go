package asm

import (
	"fmt"
	"strconv"
	"strings"

	"n2t.dev/toolchain/pkg/hack"
)

// CodeGenerator renders a flat Program (still carrying LabelDecl statements,
// unlike hack.Program) back into Hack assembly text, one line per statement.
type CodeGenerator struct {
	program []Statement
}

func NewCodeGenerator(p []Statement) CodeGenerator {
	return CodeGenerator{program: p}
}

func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for i, stmt := range cg.program {
		var (
			line string
			err  error
		)

		switch s := stmt.(type) {
		case AInstruction:
			line, err = cg.GenerateAInst(s)
		case CInstruction:
			line, err = cg.GenerateCInst(s)
		case LabelDecl:
			line, err = cg.GenerateLabelDecl(s)
		case Comment:
			line = "// " + s.Text
		default:
			err = fmt.Errorf("unrecognized statement '%T'", stmt)
		}

		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", fmt.Errorf("A instruction needs a non-empty location")
	}
	if first := stmt.Location[0]; first >= '0' && first <= '9' {
		addr, err := strconv.ParseUint(stmt.Location, 10, 16)
		if err != nil || uint16(addr) >= hack.MaxAddressableMemory {
			return "", fmt.Errorf("location '%s' is outside the addressable memory range", stmt.Location)
		}
	}
	return "@" + stmt.Location, nil
}

// GenerateCInst renders "comp", "dest=comp", "comp;jump" or "dest=comp;jump"
// depending on which of Dest/Jump are set; Comp alone with neither is
// rejected since such an instruction has no observable effect.
func (cg *CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", fmt.Errorf("C instruction needs a non-empty 'comp' field")
	}
	if stmt.Dest == "" && stmt.Jump == "" {
		return "", fmt.Errorf("C instruction needs a 'dest', a 'jump', or both")
	}

	var b strings.Builder
	if stmt.Dest != "" {
		b.WriteString(stmt.Dest)
		b.WriteByte('=')
	}
	b.WriteString(stmt.Comp)
	if stmt.Jump != "" {
		b.WriteByte(';')
		b.WriteString(stmt.Jump)
	}
	return b.String(), nil
}

func (cg *CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if stmt.Name == "" {
		return "", fmt.Errorf("label declaration needs a non-empty name")
	}
	if _, reserved := hack.BuiltInTable[stmt.Name]; reserved {
		return "", fmt.Errorf("'%s' is a built-in symbol, cannot redeclare it as a label", stmt.Name)
	}
	return fmt.Sprintf("(%s)", stmt.Name), nil
}
