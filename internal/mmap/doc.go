// Package mmap maps local row files and factor blobs read-only into memory.
//
// On unix platforms the mapping uses mmap(2) via golang.org/x/sys/unix. Other
// platforms fall back to reading the file into a heap buffer, which keeps the
// same API.
package mmap
