package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/layer-3/xerial"
	"github.com/layer-3/xerial/internal/conf"
	"github.com/spf13/cobra"
)

var configFile = ""

var rootCmd = cobra.Command{
	Use:           "xerial",
	Short:         "Command line client for the Xerial custodial wallet",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd.AddCommand(&loginCmd, &logoutCmd, &whoamiCmd, &tokensCmd, &balanceCmd, &inventoryCmd, sendCmd())
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the .env file to use")

	return &rootCmd
}

// execWithApp loads the configuration, wires the SDK and runs fn with it
func execWithApp(cmd *cobra.Command, fn func(a *app) error) error {
	config, err := conf.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := newApp(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var loginCmd = cobra.Command{
	Use:   "login",
	Short: "Log in through the browser, or refresh a stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			account, err := a.sdk.Authenticate(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(account)
		})
	},
}

var logoutCmd = cobra.Command{
	Use:   "logout",
	Short: "End the session and forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			return a.sdk.Logout(cmd.Context())
		})
	},
}

var whoamiCmd = cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user and its active address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			if !a.sdk.IsAuthenticated(cmd.Context()) {
				return xerial.ErrNotAuthenticated
			}
			account, err := a.sdk.User(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(account)
		})
	},
}

var tokensCmd = cobra.Command{
	Use:   "tokens [address]",
	Short: "List token balances",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			var (
				balances json.RawMessage
				err      error
			)
			if len(args) == 1 {
				balances, err = a.sdk.TokensAt(cmd.Context(), args[0])
			} else {
				balances, err = a.sdk.Tokens(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(balances)
		})
	},
}

var balanceCmd = cobra.Command{
	Use:   "balance [address]",
	Short: "Show the native coin balance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			if len(args) == 1 {
				balance, err := a.sdk.NativeBalanceAt(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Println(balance.String())
				return nil
			}

			balance, err := a.sdk.NativeBalance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(balance.String())
			return nil
		})
	},
}

var inventoryCmd = cobra.Command{
	Use:   "inventory [address]",
	Short: "Show the global inventory (polygon only)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execWithApp(cmd, func(a *app) error {
			var (
				inventory json.RawMessage
				err       error
			)
			if len(args) == 1 {
				inventory, err = a.sdk.InventoryAt(cmd.Context(), args[0])
			} else {
				inventory, err = a.sdk.Inventory(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(inventory)
		})
	},
}

func sendCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "send <tx.json>",
		Short: "Submit a pre-built transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readTransaction(args[0])
			if err != nil {
				return err
			}
			return execWithApp(cmd, func(a *app) error {
				hash, err := a.sdk.SendTransaction(cmd.Context(), tx, from)
				if err != nil {
					return err
				}
				fmt.Println(hash)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address; must belong to the logged in user")

	return cmd
}

// readTransaction reads a transaction from a file, or stdin when path is "-"
func readTransaction(path string) (xerial.UnsignedTransaction, error) {
	var tx xerial.UnsignedTransaction

	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return tx, fmt.Errorf("failed to open transaction file: %w", err)
		}
		defer f.Close()
	}

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		return tx, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}
