// Package config provides server settings and room presets.
//
// The config package handles:
//   - Loading server settings from a YAML file with defaults
//   - Environment variable overrides for deployment
//   - Loading, caching and saving room presets from a directory
//   - Validation of presets against the board rules
//
// Settings Format:
//
//	server:
//	  host: localhost
//	  port: 8080
//	rooms:
//	  max_rooms: 5
//	  empty_check_delay: 50s
//	presets:
//	  dir: presets
//	nats:
//	  url: nats://localhost:4222
//
// Preset Format:
//
// Each preset is a YAML file in the presets directory, named after the
// preset:
//
//	name: classic
//	description: Seven by six, four in a row
//	width: 7
//	height: 6
//	connect: 4
//	gravity: true
//	minutes: 5
//	increment: 3
//
// minutes is the base time of each player's clock and increment the
// seconds credited back after every move.
//
// Usage:
//
//	manager, err := config.NewManager("presets", engine.DefaultMaxLength)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadPreset("classic")
//	params := preset.Params()
package config
