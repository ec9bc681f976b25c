package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// addressType is the leading descriptor byte that identifies the kind of
// address that follows, per BOLT-07's node_announcement address list.
type addressType uint8

const (
	addrTypeIPv4 addressType = 1
	addrTypeIPv6 addressType = 2
)

const (
	ipv4AddrLen = 4 + 2
	ipv6AddrLen = 16 + 2
)

// writeAddresses serializes a node_announcement address list: a 2-byte
// total length followed by each address's descriptor byte, raw bytes, and
// 2-byte port. Only IPv4/IPv6 TCP addresses are understood; anything else
// is rejected rather than silently dropped, since silently dropping an
// address would desync what gets echoed back to other peers.
func writeAddresses(w io.Writer, addrs []net.Addr) error {
	var buf []byte
	for _, addr := range addrs {
		tcpAddr, ok := addr.(*net.TCPAddr)
		if !ok {
			return fmt.Errorf("unsupported address type: %T", addr)
		}

		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			buf = append(buf, byte(addrTypeIPv4))
			buf = append(buf, ip4...)
		} else {
			buf = append(buf, byte(addrTypeIPv6))
			buf = append(buf, tcpAddr.IP.To16()...)
		}

		var portBuf [2]byte
		binary.BigEndian.PutUint16(portBuf[:], uint16(tcpAddr.Port))
		buf = append(buf, portBuf[:]...)
	}

	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(buf)))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

// readAddresses parses a node_announcement address list back into a slice
// of *net.TCPAddr.
func readAddresses(r io.Reader) ([]net.Addr, error) {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	total := binary.BigEndian.Uint16(l[:])

	buf := make([]byte, total)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	var addrs []net.Addr
	for len(buf) > 0 {
		descriptor := addressType(buf[0])
		buf = buf[1:]

		var ipLen int
		switch descriptor {
		case addrTypeIPv4:
			ipLen = 4
		case addrTypeIPv6:
			ipLen = 16
		default:
			return nil, fmt.Errorf("unknown address descriptor: %d", descriptor)
		}

		if len(buf) < ipLen+2 {
			return nil, fmt.Errorf("address list truncated")
		}

		ip := net.IP(buf[:ipLen])
		port := binary.BigEndian.Uint16(buf[ipLen : ipLen+2])
		buf = buf[ipLen+2:]

		addrs = append(addrs, &net.TCPAddr{IP: ip, Port: int(port)})
	}

	return addrs, nil
}
