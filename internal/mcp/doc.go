// Package mcp exposes the theme pipeline to AI assistants over the
// Model Context Protocol.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// on the stdio transport and calls the pipeline engine directly. Tool
// text responses pass through the scrubber so secrets that survived
// intake never reach the assistant.
package mcp
