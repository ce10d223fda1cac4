package pcap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"PcapSpectra/internal/engine/protocol"
	"PcapSpectra/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

// Reader decodes an offline capture (pcap or pcapng) one packet at a time.
// It implements model.PacketSource.
type Reader struct {
	packets  *gopacket.PacketSource
	linkType layers.LinkType
	file     *os.File
}

// NewReader opens a capture file.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := NewReaderFrom(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	r.file = f
	return r, nil
}

// NewReaderFrom detects the capture format from the first bytes of src.
func NewReaderFrom(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read capture magic: %v", model.ErrDecodeFailure, err)
	}

	var data gopacket.PacketDataSource
	var linkType layers.LinkType
	if bytes.Equal(magic, pcapngMagic) {
		ngReader, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create pcapng reader: %v", model.ErrDecodeFailure, err)
		}
		data, linkType = ngReader, ngReader.LinkType()
	} else {
		pcapReader, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create pcap reader: %v", model.ErrDecodeFailure, err)
		}
		data, linkType = pcapReader, pcapReader.LinkType()
	}

	packets := gopacket.NewPacketSource(data, linkType)
	packets.Lazy = true
	packets.NoCopy = true
	return &Reader{packets: packets, linkType: linkType}, nil
}

// LinkType returns the link type of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Next decodes the next packet. It returns io.EOF at the end of the capture.
func (r *Reader) Next() (*model.PacketRecord, error) {
	packet, err := r.packets.NextPacket()
	if err != nil {
		return nil, err
	}
	return protocol.ParsePacket(packet), nil
}

// Close closes the underlying file when the reader opened it.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
