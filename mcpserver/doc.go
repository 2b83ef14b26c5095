// Package mcpserver exposes the catalog, sync, retrieval and external query operations
// as MCP tools plus a tables://{prompt} resource template. It serves over stdio or as a
// JSON-RPC endpoint mounted on a chi router.
package mcpserver
