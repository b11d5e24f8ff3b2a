package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"passbook/internal/passes/models"
)

// PassOutput is the printable form of a pass.
type PassOutput struct {
	ID                 int64           `json:"id"`
	PassTypeIdentifier string          `json:"passTypeIdentifier"`
	SerialNumber       string          `json:"serialNumber"`
	Data               json.RawMessage `json:"data"`
	CreatedAt          string          `json:"createdAt"`
	UpdatedAt          string          `json:"updatedAt"`
}

func toPassOutput(p *models.Pass) PassOutput {
	return PassOutput{
		ID:                 p.ID,
		PassTypeIdentifier: p.PassTypeIdentifier,
		SerialNumber:       p.SerialNumber,
		Data:               p.Data,
		CreatedAt:          p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (o PassOutput) String() string {
	return fmt.Sprintf("%s/%s (id %d, updated %s)\n%s",
		o.PassTypeIdentifier, o.SerialNumber, o.ID, o.UpdatedAt, o.Data)
}

// NewPassCommand groups the pass provisioning subcommands.
func NewPassCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pass",
		Short: "Create, update and show passes",
	}
	cmd.AddCommand(newPassCreateCommand(rootOpts))
	cmd.AddCommand(newPassUpdateCommand(rootOpts))
	cmd.AddCommand(newPassShowCommand(rootOpts))
	return cmd
}

func newPassCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "create <pass-type> <serial>",
		Short: "Create a pass",
		Long: `Create a pass identified by type and serial number.

The pass type must be dot-separated word segments, for example
pass.com.example.boarding. The payload is read from --data (JSON or YAML,
"-" for stdin) and defaults to {}.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(rootOpts, cmd, func(svc passService) (*models.Pass, error) {
				data, err := readPayload(dataPath, cmd.InOrStdin())
				if err != nil {
					return nil, WrapExitError(ExitCommandError, "load payload", err)
				}
				return svc.CreatePass(cmd.Context(), args[0], args[1], data)
			})
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "payload file (JSON or YAML, - for stdin)")
	return cmd
}

func newPassUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "update <pass-type> <serial>",
		Short: "Replace a pass payload",
		Long: `Replace the payload of an existing pass. A changed payload advances the
pass's last-modified time, which registered devices see on their next
serials query.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(rootOpts, cmd, func(svc passService) (*models.Pass, error) {
				data, err := readPayload(dataPath, cmd.InOrStdin())
				if err != nil {
					return nil, WrapExitError(ExitCommandError, "load payload", err)
				}
				return svc.UpdatePassData(cmd.Context(), args[0], args[1], data)
			})
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "payload file (JSON or YAML, - for stdin)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newPassShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pass-type> <serial>",
		Short: "Show a pass",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(rootOpts, cmd, func(svc passService) (*models.Pass, error) {
				return svc.ShowPass(cmd.Context(), args[0], args[1])
			})
		},
	}
}

// passService is the provisioning subset of the registration service.
type passService interface {
	CreatePass(ctx context.Context, passType, serial string, data []byte) (*models.Pass, error)
	UpdatePassData(ctx context.Context, passType, serial string, data []byte) (*models.Pass, error)
	ShowPass(ctx context.Context, passType, serial string) (*models.Pass, error)
}

// runPass opens the service, runs op and prints the resulting pass.
func runPass(rootOpts *RootOptions, cmd *cobra.Command, op func(passService) (*models.Pass, error)) error {
	f := rootOpts.formatter(cmd)

	svc, closeFn, err := rootOpts.openService(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	p, err := op(svc)
	if err != nil {
		return err
	}
	f.VerboseLog("pass %s stored with id %d", p.Identity(), p.ID)
	return f.Success(toPassOutput(p))
}
