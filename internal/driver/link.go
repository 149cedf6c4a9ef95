package driver

import (
	"fmt"
	"os"
	"os/exec"
)

// ObjectEmitter is implemented by back-ends that can write a native object
// file for a module, for the AOT link step (spec.md §1, §6.4).
type ObjectEmitter interface {
	EmitObject(path string) error
}

// LinkObject links objPath and runtimePath into a single executable at
// outputPath, mirroring original_source/src/driver.cpp's linkToRuntime
// (which shells out to "clang++ cpp-runtime/entry.cpp output.o -o
// <output>"); this uses a non-shell exec.Command so neither path is
// interpreted by a shell.
func LinkObject(cc, objPath, runtimePath, outputPath string) error {
	cmd := exec.Command(cc, objPath, runtimePath, "-o", outputPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("driver: linking %s: %w", outputPath, err)
	}
	return nil
}

// CleanUp removes the intermediate object file, mirroring
// original_source/src/driver.cpp's cleanUp (there a shelled-out "rm";
// here a direct os.Remove needs no shell at all).
func CleanUp(objPath string) error {
	return os.Remove(objPath)
}
