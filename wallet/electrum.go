// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"net"
	"strconv"
)

// ElectrumPreset selects a well known Electrum server or a custom one.
type ElectrumPreset uint8

const (
	// ElectrumMyCitadel is the MyCitadel public server.
	ElectrumMyCitadel ElectrumPreset = iota

	// ElectrumBlockstream is the Blockstream public server.
	ElectrumBlockstream

	// ElectrumCustom is a user provided server.
	ElectrumCustom
)

// ElectrumSec is the transport security of an Electrum connection.
type ElectrumSec uint8

const (
	// ElectrumTor connects over Tor.
	ElectrumTor ElectrumSec = iota

	// ElectrumTLS connects over TLS.
	ElectrumTLS

	// ElectrumNone connects over plain TCP.
	ElectrumNone
)

// String returns the name of the transport.
func (s ElectrumSec) String() string {
	switch s {
	case ElectrumTor:
		return "tor"
	case ElectrumTLS:
		return "tls"
	case ElectrumNone:
		return "tcp"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ElectrumServer is the chain server a wallet synchronizes with. Host, Port
// and Sec are only used by custom servers.
type ElectrumServer struct {
	Preset ElectrumPreset
	Host   string
	Port   uint16
	Sec    ElectrumSec
}

// DefaultElectrumServer returns the MyCitadel server.
func DefaultElectrumServer() ElectrumServer {
	return ElectrumServer{Preset: ElectrumMyCitadel, Sec: ElectrumTLS}
}

// CustomElectrumServer returns a user provided server.
func CustomElectrumServer(host string, port uint16,
	sec ElectrumSec) ElectrumServer {

	return ElectrumServer{
		Preset: ElectrumCustom,
		Host:   host,
		Port:   port,
		Sec:    sec,
	}
}

// defaultElectrumPort returns the conventional port of the network and
// transport.
func defaultElectrumPort(network Network, sec ElectrumSec) uint16 {
	tls := sec == ElectrumTLS

	switch {
	case network == Mainnet && tls:
		return 50002
	case network == Mainnet:
		return 50001
	case network == Signet && tls:
		return 60602
	case network == Signet:
		return 60601
	case tls:
		return 60002
	default:
		return 60001
	}
}

// Server returns the host, port and transport to connect to on the network.
func (s ElectrumServer) Server(network Network) (string, uint16,
	ElectrumSec) {

	switch s.Preset {
	case ElectrumMyCitadel:
		return "electrum.mycitadel.io",
			defaultElectrumPort(network, ElectrumTLS), ElectrumTLS

	case ElectrumBlockstream:
		return "electrum.blockstream.info",
			defaultElectrumPort(network, ElectrumTLS), ElectrumTLS

	default:
		port := s.Port
		if port == 0 {
			port = defaultElectrumPort(network, s.Sec)
		}
		return s.Host, port, s.Sec
	}
}

// URL returns the connection string of the server on the network, e.g.
// "ssl://electrum.blockstream.info:50002".
func (s ElectrumServer) URL(network Network) string {
	host, port, sec := s.Server(network)

	scheme := "tcp"
	if sec == ElectrumTLS {
		scheme = "ssl"
	}

	return scheme + "://" + net.JoinHostPort(
		host, strconv.FormatUint(uint64(port), 10),
	)
}

// String describes the server without network specific details.
func (s ElectrumServer) String() string {
	switch s.Preset {
	case ElectrumMyCitadel:
		return "electrum.mycitadel.io"
	case ElectrumBlockstream:
		return "electrum.blockstream.info"
	default:
		return fmt.Sprintf("%s:%d", s.Host, s.Port)
	}
}
