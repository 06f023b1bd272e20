// Command schema writes the JSON schema of the feedroll configuration, or with --check
// verifies that an existing schema file is up to date.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/feedroll/feedroll/pkg/config"
)

type opts struct {
	Out   string `short:"o" long:"out" default:"pkg/config/schema.json" description:"schema file"`
	Check bool   `long:"check" description:"fail if the schema file differs from the generated one"`
}

func main() {
	var o opts
	if _, err := flags.Parse(&o); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(o); err != nil {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(o opts) error {
	data, err := json.MarshalIndent(config.GenerateSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if o.Check {
		current, err := os.ReadFile(o.Out)
		if err != nil {
			return fmt.Errorf("read %s: %w", o.Out, err)
		}
		same, err := sameJSON(current, data)
		if err != nil {
			return fmt.Errorf("compare %s: %w", o.Out, err)
		}
		if !same {
			return fmt.Errorf("%s is stale, regenerate it", o.Out)
		}
		lgr.Printf("[INFO] %s is up to date", o.Out)
		return nil
	}

	if err := os.WriteFile(o.Out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", o.Out, err)
	}
	lgr.Printf("[INFO] schema written to %s", o.Out)
	return nil
}

// sameJSON compares documents ignoring formatting and key order
func sameJSON(a, b []byte) (bool, error) {
	if bytes.Equal(a, b) {
		return true, nil
	}
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false, err
	}
	return reflect.DeepEqual(va, vb), nil
}
