// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"gopkg.in/yaml.v3"
)

// optionsFileSchema is the YAML shape of --options files. Every field is a
// pointer so an absent key keeps the engine default instead of zeroing it.
// Unknown keys are rejected outright; a typoed option silently reverting to
// its default is worse than a startup failure.
type optionsFileSchema struct {
	SendAdcWithLux           *bool `yaml:"sendAdcWithLux"`
	SendRawData              *bool `yaml:"sendRawData"`
	SendRawLux               *bool `yaml:"sendRawLux"`
	SendBootMessages         *bool `yaml:"sendBootMessages"`
	SendStatusMessages       *bool `yaml:"sendStatusMessages"`
	SendDecodedPayload       *bool `yaml:"sendDecodedPayload"`
	SendEventCount           *bool `yaml:"sendEventCount"`
	UseFahrenheitTemps       *bool `yaml:"useFahrenheitTemps"`
	UseMillisecondTimestamps *bool `yaml:"useMillisecondTimestamps"`
	SwitchOpenValue          *bool `yaml:"switchOpenValue"`
	DeDuplicateBursts        *bool `yaml:"deDuplicateBursts"`
	DecodeTextMessages       *bool `yaml:"decodeTextMessages"`
	SendHopData              *bool `yaml:"sendHopData"`
}

func (s *optionsFileSchema) apply(o *conectric.Options) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&o.SendAdcWithLux, s.SendAdcWithLux)
	set(&o.SendRawData, s.SendRawData)
	set(&o.SendRawLux, s.SendRawLux)
	set(&o.SendBootMessages, s.SendBootMessages)
	set(&o.SendStatusMessages, s.SendStatusMessages)
	set(&o.SendDecodedPayload, s.SendDecodedPayload)
	set(&o.SendEventCount, s.SendEventCount)
	set(&o.UseFahrenheitTemps, s.UseFahrenheitTemps)
	set(&o.UseMillisecondTimestamps, s.UseMillisecondTimestamps)
	set(&o.SwitchOpenValue, s.SwitchOpenValue)
	set(&o.DeDuplicateBursts, s.DeDuplicateBursts)
	set(&o.DecodeTextMessages, s.DecodeTextMessages)
	set(&o.SendHopData, s.SendHopData)
}

// loadEngineOptions builds the engine options from the defaults, the
// --options file (if any) and the --debug flag.
func loadEngineOptions() (conectric.Options, error) {
	opts := conectric.DefaultOptions()
	opts.Logger = logger
	opts.DebugMode = debugMode

	if optionsFile == "" {
		return opts, nil
	}

	f, err := os.Open(optionsFile)
	if err != nil {
		return opts, fmt.Errorf("options file: %w", err)
	}
	defer f.Close()

	var schema optionsFileSchema
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil {
		return opts, fmt.Errorf("options file %s: %w", optionsFile, err)
	}

	schema.apply(&opts)
	return opts, nil
}
