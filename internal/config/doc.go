// Package config provides configuration parsing for interactivity projects.
//
// The configuration is stored in interactivity.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "prefix": "wp",
//	  "debug": false,
//	  "log": {"level": "info", "format": "text"},
//	  "budget": {"maxEffectRuns": 1000},
//	  "dev": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "pages": "pages"
//	  },
//	  "metrics": {"enabled": true, "namespace": "interactivity"},
//	  "tracing": {"tracerName": "interactivity"},
//	  "source": {"region": "us-east-1"}
//	}
//
// dev.pages is a local directory or an s3://bucket/prefix location.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := interactivity.New(interactivity.WithConfig(cfg.Runtime()))
package config
