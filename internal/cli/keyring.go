package cli

import (
	"errors"
	"fmt"

	zk "github.com/zalando/go-keyring"
)

const (
	keyringService = "hris-attendance-cli"
	keyringToken   = "access_token"
)

var ErrNotLoggedIn = errors.New("not logged in, run `attendctl auth login` first")

func SaveToken(token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	if err := zk.Set(keyringService, keyringToken, token); err != nil {
		return fmt.Errorf("save token to keyring: %w", err)
	}
	return nil
}

func LoadToken() (string, error) {
	token, err := zk.Get(keyringService, keyringToken)
	if err != nil {
		if errors.Is(err, zk.ErrNotFound) {
			return "", ErrNotLoggedIn
		}
		return "", fmt.Errorf("read token from keyring: %w", err)
	}
	return token, nil
}

func DeleteToken() error {
	if err := zk.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, zk.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}
