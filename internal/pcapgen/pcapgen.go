// Package pcapgen synthesizes Ethernet captures for tests and load generation.
package pcapgen

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Transport selects the headers placed above the Ethernet layer.
type Transport int

const (
	TCP Transport = iota
	UDP
	ICMP
	// IGMP emits an IPv4 packet carrying protocol 2 with no parsed transport.
	IGMP
	// ARP emits a frame with no IP layer at all.
	ARP
)

// Spec describes one packet to synthesize.
type Spec struct {
	Timestamp   time.Time
	SrcIP       net.IP
	DstIP       net.IP
	SrcPort     uint16
	DstPort     uint16
	Transport   Transport
	PayloadSize int
}

const snaplen = 65536

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// Serialize builds the wire bytes of one packet.
func Serialize(s Spec) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	payload := gopacket.Payload(make([]byte, s.PayloadSize))

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC}

	if s.Transport == ARP {
		eth.EthernetType = layers.EthernetTypeARP
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   srcMAC,
			SourceProtAddress: net.IP{10, 0, 0, 1}.To4(),
			DstHwAddress:      make(net.HardwareAddr, 6),
			DstProtAddress:    net.IP{10, 0, 0, 2}.To4(),
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, arp); err != nil {
			return nil, fmt.Errorf("failed to serialize ARP frame: %w", err)
		}
		return buf.Bytes(), nil
	}

	var network gopacket.NetworkLayer
	var stack []gopacket.SerializableLayer
	if v4 := s.SrcIP.To4(); v4 != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{Version: 4, TTL: 64, SrcIP: v4, DstIP: s.DstIP.To4()}
		switch s.Transport {
		case TCP:
			ip.Protocol = layers.IPProtocolTCP
		case UDP:
			ip.Protocol = layers.IPProtocolUDP
		case ICMP:
			ip.Protocol = layers.IPProtocolICMPv4
		case IGMP:
			ip.Protocol = layers.IPProtocolIGMP
		}
		network = ip
		stack = append(stack, eth, ip)
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{Version: 6, HopLimit: 64, SrcIP: s.SrcIP.To16(), DstIP: s.DstIP.To16()}
		switch s.Transport {
		case TCP:
			ip.NextHeader = layers.IPProtocolTCP
		case UDP:
			ip.NextHeader = layers.IPProtocolUDP
		case ICMP:
			ip.NextHeader = layers.IPProtocolICMPv6
		default:
			return nil, fmt.Errorf("transport %d is not supported over IPv6", s.Transport)
		}
		network = ip
		stack = append(stack, eth, ip)
	}

	switch s.Transport {
	case TCP:
		tcp := &layers.TCP{SrcPort: layers.TCPPort(s.SrcPort), DstPort: layers.TCPPort(s.DstPort), ACK: true, Window: 14600}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		stack = append(stack, tcp)
	case UDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(s.SrcPort), DstPort: layers.UDPPort(s.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		stack = append(stack, udp)
	case ICMP:
		if _, ok := network.(*layers.IPv6); ok {
			icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)}
			if err := icmp.SetNetworkLayerForChecksum(network); err != nil {
				return nil, err
			}
			stack = append(stack, icmp)
		} else {
			stack = append(stack, &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)})
		}
	}
	stack = append(stack, payload)

	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, fmt.Errorf("failed to serialize layers: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePcap writes specs as a classic pcap stream.
func WritePcap(w io.Writer, specs []Spec) error {
	pcapWriter := pcapgo.NewWriter(w)
	if err := pcapWriter.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, s := range specs {
		data, err := Serialize(s)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}
		if err := pcapWriter.WritePacket(captureInfo(s, data), data); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return nil
}

// WritePcapNg writes specs as a pcapng stream with one Ethernet interface.
func WritePcapNg(w io.Writer, specs []Spec) error {
	ngWriter, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	if err != nil {
		return fmt.Errorf("failed to create pcapng writer: %w", err)
	}
	for i, s := range specs {
		data, err := Serialize(s)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}
		if err := ngWriter.WritePacket(captureInfo(s, data), data); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return ngWriter.Flush()
}

func captureInfo(s Spec, data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     s.Timestamp,
		CaptureLength: len(data),
		Length:        len(data),
	}
}

// Random returns count packets forming a plausible traffic mix: web, TLS,
// SSH and DNS conversations answered in both directions, plus some ICMP,
// IGMP and ARP. Timestamps advance from start by up to 50ms per packet.
func Random(rng *rand.Rand, count int, start time.Time) []Spec {
	hosts := []net.IP{
		{192, 168, 1, 10}, {192, 168, 1, 11}, {192, 168, 1, 12},
		{10, 0, 0, 5}, {172, 16, 0, 9}, {8, 8, 8, 8},
	}
	services := []struct {
		transport Transport
		port      uint16
	}{
		{TCP, 80}, {TCP, 443}, {TCP, 443}, {TCP, 22}, {UDP, 53}, {TCP, 8080}, {UDP, 123},
	}

	specs := make([]Spec, 0, count)
	ts := start
	for len(specs) < count {
		ts = ts.Add(time.Duration(rng.Intn(50)+1) * time.Millisecond)
		client := hosts[rng.Intn(len(hosts))]
		server := hosts[rng.Intn(len(hosts))]

		switch n := rng.Intn(20); {
		case n == 0:
			specs = append(specs, Spec{Timestamp: ts, Transport: ARP})
		case n == 1:
			specs = append(specs, Spec{Timestamp: ts, SrcIP: client, DstIP: server, Transport: ICMP, PayloadSize: 56})
		case n == 2:
			specs = append(specs, Spec{Timestamp: ts, SrcIP: client, DstIP: net.IP{224, 0, 0, 1}, Transport: IGMP, PayloadSize: 8})
		default:
			svc := services[rng.Intn(len(services))]
			ephemeral := uint16(rng.Intn(65535-49152) + 49152)
			request := Spec{
				Timestamp: ts, SrcIP: client, DstIP: server,
				SrcPort: ephemeral, DstPort: svc.port,
				Transport: svc.transport, PayloadSize: rng.Intn(200) + 20,
			}
			reply := request
			reply.Timestamp = ts.Add(time.Duration(rng.Intn(5)+1) * time.Millisecond)
			reply.SrcIP, reply.DstIP = request.DstIP, request.SrcIP
			reply.SrcPort, reply.DstPort = request.DstPort, request.SrcPort
			reply.PayloadSize = rng.Intn(1400) + 50
			specs = append(specs, request, reply)
			ts = reply.Timestamp
		}
	}
	return specs[:count]
}
