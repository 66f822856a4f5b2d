// Package config loads process configuration: built-in defaults, then an
// optional YAML or TOML file, then environment variables, then validation.
//
// Environment variables:
//
//	BOARD              board model (ZCU216, ZCU111, RFSoC4x2)
//	READTHEDOCS        "True" in documentation builds
//	QICK_CONFIG        configuration file path
//	QICK_MACHINE       machine identifier override
//	QICK_FIRMWARE_DIR  directory holding bitfiles and descriptors
//	QICK_RPC_ADDR      RPC listen address
//	QICK_RPC_SECRET    HS256 secret enabling bearer authentication
//	QICK_RPC_TOKEN_TTL client token lifetime in seconds
//	QICK_AUDIT_DIR     write a JSONL audit of RPC calls into this directory
//	QICK_LOG_FILE      rotate logs into this file instead of stderr
package config
