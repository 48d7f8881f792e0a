package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resumeEditor/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "为指定用户签发开发用访问令牌（需要 AUTH_PRIVATE_KEY_PATH）",
	RunE:  runToken,
}

var (
	tokenUserID string
	tokenTTL    time.Duration
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenUserID, "user", "u", "", "用户标识（必填）")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "有效期，默认使用 AUTH_ACCESS_TOKEN_TTL")
	if err := tokenCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID := strings.TrimSpace(tokenUserID)
	if userID == "" {
		return errors.New("--user must not be blank")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.PrivateKeyPath == "" {
		return auth.ErrSigningDisabled
	}

	pub, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	priv, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	ttl := cfg.Auth.AccessTokenTTL
	if tokenTTL > 0 {
		ttl = tokenTTL
	}
	svc, err := auth.NewAuthService(priv, pub, cfg.Auth.Issuer, ttl)
	if err != nil {
		return err
	}
	token, err := svc.GenerateToken(userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
