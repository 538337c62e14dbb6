// Package api exposes the HTTP surface: document ingestion, namespace
// management, health probes, and the two chat transports (SSE and
// WebSocket). Handlers are thin adapters over the ingest, retrieval, and
// chat packages; all turn logic lives there.
package api
