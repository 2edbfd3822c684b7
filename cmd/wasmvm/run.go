package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/hostmodules/ethereum"
	"github.com/wazero-vm/core/hostmodules/wasi"
	"github.com/wazero-vm/core/vm"
)

func newRunCommand() *cobra.Command {
	var costLimit uint64
	var enableWASI bool
	var enableEthereum bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run <module.wasm> <func> [args...]",
		Short: "Instantiate a module and invoke one of its exported functions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			path, funcName, rawArgs := args[0], args[1], args[2:]

			mod, err := Load(path)
			if err != nil {
				return err
			}

			opts := []vm.Option{vm.WithLogger(log)}
			if costLimit > 0 {
				opts = append(opts, vm.WithCostLimit(costLimit))
			}
			machine := vm.New(opts...)

			if enableWASI {
				w := wasi.New(wasi.WithArgs(append([]string{path}, rawArgs...)...))
				machine.RegisterHostModule(w.AsHostModule(), vm.CategoryWASI)
			}
			if enableEthereum {
				e := ethereum.New(nil)
				machine.RegisterHostModule(e.AsHostModule(machine.AddCost), vm.CategoryEthereum)
			}

			machine.LoadWasm(path, mod)
			if err := machine.Validate(); err != nil {
				return err
			}
			if err := machine.Instantiate(); err != nil {
				return err
			}

			fns, err := machine.FunctionList()
			if err != nil {
				return err
			}
			sig, ok := fns[funcName]
			if !ok {
				return fmt.Errorf("no exported function %q", funcName)
			}
			if len(rawArgs) != len(sig.Params) {
				return fmt.Errorf("%s expects %d arguments, got %d", funcName, len(sig.Params), len(rawArgs))
			}

			callArgs := make([]api.Value, len(rawArgs))
			for i, raw := range rawArgs {
				v, err := parseArg(raw, sig.Params[i])
				if err != nil {
					return fmt.Errorf("argument %d: %w", i, err)
				}
				callArgs[i] = v
			}

			results, err := machine.Execute(funcName, callArgs)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Println(r)
			}
			log.WithField("cost", machine.GetUsedCost()).Debug("execution finished")
			return nil
		},
	}

	cmd.Flags().Uint64Var(&costLimit, "cost-limit", 0, "gas/cost budget; 0 means unbounded")
	cmd.Flags().BoolVar(&enableWASI, "wasi", false, "register the wasi_snapshot_preview1 host module")
	cmd.Flags().BoolVar(&enableEthereum, "ethereum", false, "register the ethereum EEI host module")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func parseArg(raw string, t api.ValueType) (api.Value, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return api.Value{}, err
		}
		return api.I32(uint32(n)), nil
	case api.ValueTypeI64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return api.Value{}, err
		}
		return api.I64(uint64(n)), nil
	case api.ValueTypeF32:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return api.Value{}, err
		}
		return api.F32(float32(f)), nil
	case api.ValueTypeF64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return api.Value{}, err
		}
		return api.F64(f), nil
	default:
		return api.Value{}, fmt.Errorf("unsupported argument type %s", t)
	}
}
