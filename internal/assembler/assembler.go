// Package assembler turns finished captures into the views served by the
// query surfaces and the report.
package assembler

import (
	"fmt"
	"sort"
	"time"

	"PcapSpectra/internal/model"

	"github.com/google/uuid"
)

// Conversation is the read view of one FlowSummary.
type Conversation struct {
	ID          string    `json:"id"`
	SrcIP       string    `json:"srcIp"`
	SrcPort     uint16    `json:"srcPort"`
	DstIP       string    `json:"dstIp"`
	DstPort     uint16    `json:"dstPort"`
	Protocol    string    `json:"protocol"`
	PacketCount uint64    `json:"packetCount"`
	TotalBytes  uint64    `json:"totalBytes"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationMs  int64     `json:"durationMs"`
}

// Host is an address seen in a capture with the first port it used.
type Host struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

// Summary is the overview of one capture.
type Summary struct {
	CaptureID    string    `json:"captureId"`
	Name         string    `json:"fileName"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
	TotalPackets uint64    `json:"totalPackets"`
	TotalBytes   uint64    `json:"totalBytes"`
	TotalFlows   int       `json:"totalFlows"`
	// TimeRange holds the first and last packet time in Unix milliseconds,
	// or nothing for an empty capture.
	TimeRange            []int64              `json:"timeRange"`
	DurationMs           int64                `json:"durationMs"`
	ProtocolDistribution []model.ProtocolStat `json:"protocolDistribution"`
	TopConversations     []Conversation       `json:"topConversations"`
	UniqueHosts          []Host               `json:"uniqueHosts"`
}

// ConversationID derives a stable identifier for a flow of a capture, so the
// same conversation gets the same ID across reloads.
func ConversationID(captureID uuid.UUID, key model.FlowKey) string {
	name := fmt.Sprintf("%s|%d|%s|%d|%s", key.SrcIP, key.SrcPort, key.DstIP, key.DstPort, key.Protocol)
	return uuid.NewSHA1(captureID, []byte(name)).String()
}

// Conversations maps flows to their read view, preserving order.
func Conversations(captureID uuid.UUID, flows []model.FlowSummary) []Conversation {
	out := make([]Conversation, 0, len(flows))
	for _, f := range flows {
		out = append(out, Conversation{
			ID:          ConversationID(captureID, f.FlowKey),
			SrcIP:       f.SrcIP,
			SrcPort:     f.SrcPort,
			DstIP:       f.DstIP,
			DstPort:     f.DstPort,
			Protocol:    f.Protocol,
			PacketCount: f.PacketCount,
			TotalBytes:  f.TotalBytes,
			StartTime:   f.StartTime,
			EndTime:     f.EndTime,
			DurationMs:  f.Duration().Milliseconds(),
		})
	}
	return out
}

// TopConversations returns at most n conversations ordered by bytes, largest
// first. Ties keep their original order.
func TopConversations(captureID uuid.UUID, flows []model.FlowSummary, n int) []Conversation {
	all := Conversations(captureID, flows)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TotalBytes > all[j].TotalBytes
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// UniqueHosts lists every address in flow order, paired with the port of the
// first flow it appeared in.
func UniqueHosts(flows []model.FlowSummary) []Host {
	seen := make(map[string]struct{})
	hosts := make([]Host, 0)
	add := func(ip string, port uint16) {
		if _, ok := seen[ip]; ok {
			return
		}
		seen[ip] = struct{}{}
		hosts = append(hosts, Host{IP: ip, Port: port})
	}
	for _, f := range flows {
		add(f.SrcIP, f.SrcPort)
		add(f.DstIP, f.DstPort)
	}
	return hosts
}

// Summarize builds the overview of a capture with its topN largest
// conversations.
func Summarize(c *model.Capture, topN int) *Summary {
	res := c.Result
	s := &Summary{
		CaptureID:            c.ID.String(),
		Name:                 c.Name,
		AnalyzedAt:           c.AnalyzedAt,
		TotalPackets:         res.PacketCount,
		TotalBytes:           res.TotalBytes,
		TotalFlows:           len(res.Flows),
		TimeRange:            []int64{},
		DurationMs:           res.Duration().Milliseconds(),
		ProtocolDistribution: res.Protocols,
		TopConversations:     TopConversations(c.ID, res.Flows, topN),
		UniqueHosts:          UniqueHosts(res.Flows),
	}
	if s.ProtocolDistribution == nil {
		s.ProtocolDistribution = []model.ProtocolStat{}
	}
	if res.PacketCount > 0 {
		s.TimeRange = []int64{res.StartTime.UnixMilli(), res.EndTime.UnixMilli()}
	}
	return s
}
