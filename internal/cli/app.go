package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
)

type App struct {
	Cfg             Config
	CfgPath         string
	JSONOutput      bool
	OutputFormat    string
	BaseURLOverride string
	Stdout          io.Writer
	Stderr          io.Writer
	Stdin           io.Reader

	// HTTP overrides the client's transport; tests point it at httptest.
	HTTP *http.Client
}

func NewApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
}

func (a *App) LoadConfig() error {
	if a.CfgPath == "" {
		path, err := ConfigPath()
		if err != nil {
			return err
		}
		a.CfgPath = path
	}
	cfg, err := LoadConfig(a.CfgPath)
	if err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

func (a *App) SaveConfig() error {
	return SaveConfig(a.Cfg, a.CfgPath)
}

func (a *App) BaseURL() string {
	if strings.TrimSpace(a.BaseURLOverride) != "" {
		return strings.TrimRight(strings.TrimSpace(a.BaseURLOverride), "/")
	}
	return strings.TrimRight(a.Cfg.BaseURL, "/")
}

// Format resolves the output format: --json wins, then --output, then config.
func (a *App) Format() string {
	if a.JSONOutput {
		return FormatJSON
	}
	if a.OutputFormat != "" {
		return a.OutputFormat
	}
	if a.Cfg.Output.Format != "" {
		return a.Cfg.Output.Format
	}
	return FormatText
}

func (a *App) Write(human string, payload any) error {
	return Write(a.Stdout, a.Format(), human, payload)
}

// NewAuthedClient builds an API client with the token from the keyring.
func (a *App) NewAuthedClient() (*Client, error) {
	token, err := LoadToken()
	if err != nil {
		return nil, err
	}
	return a.newClient(token), nil
}

func (a *App) newClient(token string) *Client {
	client := NewClient(a.BaseURL(), token)
	if a.HTTP != nil {
		client.HTTP = a.HTTP
	}
	return client
}

func (a *App) IsInteractive() bool {
	stdinFile, stdinOK := a.Stdin.(*os.File)
	stdoutFile, stdoutOK := a.Stdout.(*os.File)
	if !stdinOK || !stdoutOK {
		return false
	}
	return term.IsTerminal(int(stdinFile.Fd())) && term.IsTerminal(int(stdoutFile.Fd()))
}

// readSecret reads a secret without echo on a terminal, or one line otherwise.
func (a *App) readSecret(prompt string) (string, error) {
	if stdinFile, ok := a.Stdin.(*os.File); ok && term.IsTerminal(int(stdinFile.Fd())) {
		fmt.Fprint(a.Stderr, prompt)
		bytes, err := term.ReadPassword(int(stdinFile.Fd()))
		fmt.Fprintln(a.Stderr)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	line, err := bufio.NewReader(a.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
