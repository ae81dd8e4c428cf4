package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file or directory to be translated").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled assembly output (.asm), defaults to a sibling of the input").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Forces bootstrap code in the final .asm file even for a single module").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// Directory mode: all '.vm' files under the given directory are translated together into
	// a single '<dirname>/<dirname>.asm' and always carry the bootstrap sequence, matching the
	// original VMTranslator's own behavior of bootstrapping only multi-file programs.
	directoryMode := false
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		directoryMode = true
	}

	TUs := []string{}
	if directoryMode {
		filepath.Walk(args[0], func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".vm" {
				return nil
			}
			TUs = append(TUs, p)
			return nil
		})
	} else {
		TUs = args
	}

	bootstrap := directoryMode
	if _, enabled := options["bootstrap"]; enabled {
		bootstrap = true
	}

	outputPath := options["output"]
	if outputPath == "" {
		if directoryMode {
			dirname := filepath.Base(strings.TrimRight(args[0], string(os.PathSeparator)))
			outputPath = filepath.Join(args[0], fmt.Sprintf("%s.asm", dirname))
		} else {
			outputPath = fmt.Sprintf("%s.asm", strings.TrimSuffix(args[0], path.Ext(args[0])))
		}
	}

	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	for _, input := range TUs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		// The extension is trimmed off the module name since it also doubles as the
		// prefix for that module's static variables (<module>.<index>).
		filename, extension := path.Base(input), path.Ext(input)
		program[strings.TrimSuffix(filename, extension)], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	// Instantiate a lowerer to convert the program from Vm to Asm. Bootstrap code (SP := 256,
	// then a plain jump to Sys.init, with no call frame) is emitted as the first instructions
	// when requested.
	lowerer := vm.NewLowerer(program)
	asmProgram, err := lowerer.Lower(bootstrap)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
