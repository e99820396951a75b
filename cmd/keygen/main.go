package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tjfontaine/bare-gateway/internal/auth"
)

// keyBytes is the entropy of a generated key.
const keyBytes = 24

type snippet struct {
	Server struct {
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"server"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, rand.Reader); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run prints an API key, its SHA-256 hash and a config snippet. With no
// arguments a random key is generated.
func run(args []string, out io.Writer, entropy io.Reader) error {
	var apiKey string
	switch len(args) {
	case 0:
		buf := make([]byte, keyBytes)
		if _, err := io.ReadFull(entropy, buf); err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		apiKey = "bg-" + hex.EncodeToString(buf)
	case 1:
		apiKey = args[0]
	default:
		return fmt.Errorf("usage: keygen [api-key]")
	}

	var s snippet
	s.Server.APIKeys = []string{apiKey}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encode snippet: %w", err)
	}

	fmt.Fprintf(out, "API Key: %s\n", apiKey)
	fmt.Fprintf(out, "SHA-256 Hash: %s\n", auth.HashAPIKey(apiKey))
	fmt.Fprintln(out, "\nAdd this to your config.yaml:")
	_, err = out.Write(data)
	return err
}
