package vm

import (
	"path"
	"strings"

	"luby/internal/compiler"
	lubyerrors "luby/internal/errors"
	"luby/internal/lexer"
	"luby/internal/parser"
)

// Require and Load implement embedding contract: the
// interpreter never touches a real filesystem directly, only the
// host-supplied VFS. require is idempotent per resolved absolute path
// (tracked in vm.LoadedFiles); load always re-reads and re-runs.
func (vm *VM) Require(name string) (bool, error) {
	resolved, err := vm.resolve(name)
	if err != nil {
		return false, err
	}
	if vm.LoadedFiles[resolved] {
		return false, nil
	}
	if err := vm.runFile(resolved); err != nil {
		return false, err
	}
	vm.LoadedFiles[resolved] = true
	return true, nil
}

func (vm *VM) Load(name string) error {
	resolved, err := vm.resolve(name)
	if err != nil {
		return err
	}
	return vm.runFile(resolved)
}

// resolve finds the file name refers to among vm.SearchPaths, trying
// `name` as-is first and then `name + ".rb"`.
func (vm *VM) resolve(name string) (string, error) {
	if vm.VFS == nil {
		return "", lubyerrors.NewRuntimeError("require/load: no filesystem configured on this interpreter", vm.file, 0)
	}
	stem := strings.TrimSuffix(name, ".rb")
	candidates := []string{stem + ".rb", stem}
	searchPaths := vm.SearchPaths
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, dir := range searchPaths {
		for _, cand := range candidates {
			full := cand
			if !path.IsAbs(cand) {
				full = path.Join(dir, cand)
			}
			if vm.VFS.Exists(full) {
				return full, nil
			}
		}
	}
	return "", lubyerrors.New(lubyerrors.LoadError, "cannot load such file -- "+name, vm.file, 0, 0)
}

func (vm *VM) runFile(resolved string) error {
	src, err := vm.VFS.Read(resolved)
	if err != nil {
		return lubyerrors.Wrap(err, lubyerrors.RuntimeError, "error reading "+resolved, vm.file, 0)
	}
	scanner := lexer.NewScanner(src, resolved)
	tokens := scanner.ScanTokens()
	if scanner.Err() != nil {
		return scanner.Err()
	}
	p := parser.New(tokens, resolved)
	body := p.Parse()
	if p.Err() != nil {
		return p.Err()
	}
	proto, cerr := compiler.Compile(body, resolved)
	if cerr != nil {
		return cerr
	}
	savedFile := vm.file
	vm.file = resolved
	_, rerr := vm.Run(proto, resolved)
	vm.file = savedFile
	return rerr
}
