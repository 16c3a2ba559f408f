// Package protocol implements the ASCII line protocol spoken between the oven
// Host and the actuator Client.
//
// A frame is one line of `;`-separated tokens terminated by CRLF:
//
//	H;SET;00FF            set outputs mask
//	H;UPD;0008;0002       set and clear bits (clear wins)
//	H;TOG;0001            toggle bits
//	H;GET;STATUS          request telemetry
//	H;PING / H;RST
//	C;ACK;SET;00FF        acknowledgment echoing the requested mask
//	C;ERR;SET;3           application error code
//	C;STATUS;00FF;1;2;3;4;-8
//	C;PONG / C;RST
//
// Masks are always four uppercase hex digits on encode and parsed case-insensitively.
// The package is stateless apart from [Assembler], which splits a noisy byte stream
// into candidate lines.
package protocol
