package gateways

import (
	"context"
	"debug/elf"
	"debug/macho"
	"fmt"
	"strings"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// ToolStripper removes symbol and debug information with an external tool
// (strip, llvm-strip) and then checks the result with debug/elf or debug/macho.
type ToolStripper struct {
	executor *CommandExecutor
	config   entities.StripConfig
}

// NewToolStripper creates a stripper for the configured tool
func NewToolStripper(executor *CommandExecutor, config entities.StripConfig) *ToolStripper {
	if executor == nil {
		executor = NewCommandExecutor()
	}
	return &ToolStripper{executor: executor, config: config}
}

// Strip strips binaryPath in place
func (s *ToolStripper) Strip(ctx context.Context, binaryPath string) error {
	config := ExecuteCommandConfig{
		Command: s.config.Command,
		Args:    append(append([]string(nil), s.config.Args...), binaryPath),
	}

	result := s.executor.Execute(ctx, config)
	if !result.Success {
		msg := strings.TrimSpace(result.Output)
		if msg == "" && result.Error != nil {
			msg = result.Error.Error()
		}
		return fmt.Errorf("%w: %s: %s", entities.ErrStrip, config.CommandLine(), msg)
	}

	return VerifyStripped(binaryPath)
}

// VerifyStripped confirms that binaryPath is an executable with no symbol
// table or debug sections left
func VerifyStripped(binaryPath string) error {
	if f, err := elf.Open(binaryPath); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return verifyELF(binaryPath, f)
	}

	if f, err := macho.Open(binaryPath); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return verifyMachO(binaryPath, f)
	}

	return fmt.Errorf("%w: %s is not a recognized executable format", entities.ErrStrip, binaryPath)
}

func verifyELF(binaryPath string, f *elf.File) error {
	for _, section := range f.Sections {
		if section.Type == elf.SHT_SYMTAB || isDebugSection(section.Name) {
			return fmt.Errorf("%w: %s still contains section %s", entities.ErrStrip, binaryPath, section.Name)
		}
	}
	return nil
}

// Stripped Mach-O binaries keep a symbol table for dynamic linking, so only
// DWARF is checked.
func verifyMachO(binaryPath string, f *macho.File) error {
	if seg := f.Segment("__DWARF"); seg != nil {
		return fmt.Errorf("%w: %s still contains segment __DWARF", entities.ErrStrip, binaryPath)
	}
	for _, section := range f.Sections {
		if isDebugSection(section.Name) {
			return fmt.Errorf("%w: %s still contains section %s", entities.ErrStrip, binaryPath, section.Name)
		}
	}
	return nil
}

func isDebugSection(name string) bool {
	return strings.HasPrefix(name, ".debug_") ||
		strings.HasPrefix(name, ".zdebug_") ||
		strings.HasPrefix(name, "__debug_") ||
		strings.HasPrefix(name, "__zdebug_")
}
