// Command interviewctl runs the preparation pipeline and text-mode interviews
// against the same configuration as the API server.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-interview/backend/internal/bootstrap"
	"github.com/zhouzirui/z-interview/backend/internal/config"
)

// app is populated by the root command before any subcommand runs.
type app struct {
	cfg *config.Config
	svc *bootstrap.Services
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "interviewctl",
		Short:         "Prepare and run interviews from the terminal",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := bootstrap.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.cfg, a.svc = cfg, svc
			return nil
		},
	}
	root.AddCommand(
		prepCmd(a),
		consoleCmd(a),
		sessionsCmd(a),
	)
	return root
}
