package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"netmodifier/internal/compiler"
	"netmodifier/pkg/rulespec"

	"github.com/spf13/cobra"
)

func newCompileCmd(a *app) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "compile [rules.json]",
		Short: "Compile a rule collection into declarative rules",
		Long:  "Compile reads a JSON array of rules (the mockConfigs value) from a file or stdin and prints the declarative rules as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			list, err := rulespec.Decode(raw)
			if err != nil {
				return err
			}

			actions := compiler.Compile(list, a.compilerOptions())
			a.log.Debug("规则编译完成", "rules", len(list), "actions", len(actions))

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(actions)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")
	return cmd
}

// readInput 读取参数指定的文件，无参数或 "-" 时读取标准输入
func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}
	return data, nil
}
