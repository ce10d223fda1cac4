package model

// PacketSource yields decoded packets one at a time. Next returns io.EOF once
// the stream is exhausted; any other error is a decode failure. A source is
// forward-only and cannot be restarted.
type PacketSource interface {
	Next() (*PacketRecord, error)
}
