package protocol

// Kind identifies a frame variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHostSet
	KindHostUpd
	KindHostTog
	KindHostGetStatus
	KindHostPing
	KindHostRst
	KindClientAckSet
	KindClientAckUpd
	KindClientAckTog
	KindClientErrSet
	KindClientStatus
	KindClientPong
	KindClientRst
)

var kindNames = map[Kind]string{
	KindUnknown:       "UNKNOWN",
	KindHostSet:       "H_SET",
	KindHostUpd:       "H_UPD",
	KindHostTog:       "H_TOG",
	KindHostGetStatus: "H_GET_STATUS",
	KindHostPing:      "H_PING",
	KindHostRst:       "H_RST",
	KindClientAckSet:  "C_ACK_SET",
	KindClientAckUpd:  "C_ACK_UPD",
	KindClientAckTog:  "C_ACK_TOG",
	KindClientErrSet:  "C_ERR_SET",
	KindClientStatus:  "C_STATUS",
	KindClientPong:    "C_PONG",
	KindClientRst:     "C_RST",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// FromHost reports whether frames of this kind are sent by the Host.
func (k Kind) FromHost() bool { return k >= KindHostSet && k <= KindHostRst }

// FromClient reports whether frames of this kind are sent by the Client.
func (k Kind) FromClient() bool { return k >= KindClientAckSet && k <= KindClientRst }

// StatusSnapshot is the telemetry carried by a C;STATUS frame.
type StatusSnapshot struct {
	// Mask is the effective (gated) outputs mask with the live door bit.
	Mask Mask
	// Analog holds raw ADC readings, typically 0..4095.
	Analog [4]uint16
	// TempRaw is the raw temperature in quarter degrees Celsius.
	TempRaw int32
}

// TempC converts TempRaw to degrees Celsius.
func (s StatusSnapshot) TempC() float64 { return float64(s.TempRaw) / 4 }

// DoorOpen reports the door sensor bit.
func (s StatusSnapshot) DoorOpen() bool { return s.Mask.Has(BitDoor) }

// Message is one decoded frame. Only the payload fields relevant to Kind are set:
//
//	HostSet, HostTog, ClientAck*  Mask
//	HostUpd                       Mask (set) and Clear
//	ClientErrSet                  Code
//	ClientStatus                  Status
type Message struct {
	Kind   Kind
	Mask   Mask
	Clear  Mask
	Code   int32
	Status StatusSnapshot
}

func HostSet(m Mask) Message          { return Message{Kind: KindHostSet, Mask: m} }
func HostUpd(set, clear Mask) Message { return Message{Kind: KindHostUpd, Mask: set, Clear: clear} }
func HostTog(t Mask) Message          { return Message{Kind: KindHostTog, Mask: t} }
func HostGetStatus() Message          { return Message{Kind: KindHostGetStatus} }
func HostPing() Message               { return Message{Kind: KindHostPing} }
func HostRst() Message                { return Message{Kind: KindHostRst} }
func ClientAckSet(m Mask) Message     { return Message{Kind: KindClientAckSet, Mask: m} }
func ClientAckUpd(m Mask) Message     { return Message{Kind: KindClientAckUpd, Mask: m} }
func ClientAckTog(m Mask) Message     { return Message{Kind: KindClientAckTog, Mask: m} }
func ClientErrSet(code int32) Message { return Message{Kind: KindClientErrSet, Code: code} }
func ClientPong() Message             { return Message{Kind: KindClientPong} }
func ClientRst() Message              { return Message{Kind: KindClientRst} }

func ClientStatus(s StatusSnapshot) Message {
	return Message{Kind: KindClientStatus, Status: s}
}
