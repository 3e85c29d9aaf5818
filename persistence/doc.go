// Package persistence implements the on-disk byte formats shared by the
// builder, the loader and the CLI: the little-endian vector file, CRC-64
// checksum plumbing for the index trailer, and the optional zstd container.
package persistence
