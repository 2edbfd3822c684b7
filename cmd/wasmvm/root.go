// Package main is the wasmvm command-line entry point, wiring the vm
// facade, the WASI and Ethereum host module packages, and logrus-backed
// diagnostics behind a cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazero-vm/core/internal/wasmtree"
)

// ModuleLoader decodes a .wasm file into a module tree. Binary decoding is
// outside this repository's scope; wasmvm ships without one and expects an
// embedder to set Load to a real decoder before Execute runs.
var Load ModuleLoader = notImplementedLoader

type ModuleLoader func(path string) (*wasmtree.Module, error)

func notImplementedLoader(path string) (*wasmtree.Module, error) {
	return nil, fmt.Errorf("no module loader configured: wasmvm was built without a binary decoder for %q", path)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wasmvm",
		Short: "A gas-metered WebAssembly core execution engine",
	}
	root.AddCommand(newRunCommand())
	return root
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("wasmvm failed")
		os.Exit(1)
	}
}
