package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash the interviewer password for auth.interviewer_password_hash",
	RunE:  runHashPassword,
}

var hashPasswordValue string

func init() {
	hashPasswordCmd.Flags().StringVar(&hashPasswordValue, "password", "", "Password to hash (prompted when omitted)")
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	pwCfg, err := cfg.Password()
	if err != nil {
		return err
	}

	password := hashPasswordValue
	if password == "" {
		prompt := promptui.Prompt{
			Label: "Interviewer password",
			Mask:  '*',
			Validate: func(s string) error {
				if len(s) < 8 {
					return errors.New("password must be at least 8 characters")
				}
				return nil
			},
			Stdin:  io.NopCloser(cmd.InOrStdin()),
			Stdout: nopWriteCloser{cmd.OutOrStdout()},
		}
		if password, err = prompt.Run(); err != nil {
			return err
		}
	}

	hash, err := pwCfg.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// nopWriteCloser adapts an io.Writer for promptui.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
