package replica

import (
	"fmt"

	"github.com/ilnaes/downstream/internal/common"
)

// Input is one raw finger event forwarded from a client.
type Input struct {
	Phase  byte
	Finger int32
	X, Y   float32
}

// Command is the payload of a command block.
type Command struct {
	Kind   byte
	Client string // request-world, client-running
	Frame  int32  // client-running
	Input  Input  // input
}

func SendWorld() Command { return Command{Kind: common.CmdSendWorld} }

func RequestWorld(client string) Command {
	return Command{Kind: common.CmdRequestWorld, Client: client}
}

func ClientRunning(client string, frame int32) Command {
	return Command{Kind: common.CmdClientRunning, Client: client, Frame: frame}
}

func TouchInput(phase byte, finger int32, x, y float32) Command {
	return Command{Kind: common.CmdInput, Input: Input{Phase: phase, Finger: finger, X: x, Y: y}}
}

func (c Command) String() string {
	switch c.Kind {
	case common.CmdSendWorld:
		return "send-world"
	case common.CmdRequestWorld:
		return "request-world"
	case common.CmdClientRunning:
		return "client-running"
	case common.CmdInput:
		return "input"
	}
	return fmt.Sprintf("command(%d)", c.Kind)
}

func writeCommand(buf *common.Buffer, c Command) error {
	start := buf.BeginBlock(common.CommandBlob)
	buf.AddByte(c.Kind)
	switch c.Kind {
	case common.CmdRequestWorld:
		buf.AddString(c.Client)
	case common.CmdClientRunning:
		buf.AddString(c.Client)
		buf.AddInt32(c.Frame)
	case common.CmdInput:
		buf.AddByte(c.Input.Phase)
		buf.AddInt32(c.Input.Finger)
		buf.AddFloat32(c.Input.X)
		buf.AddFloat32(c.Input.Y)
	}
	return buf.EndBlock(start)
}

func readCommand(buf *common.Buffer) (Command, error) {
	var c Command
	var err error
	if c.Kind, err = buf.ReadByte(); err != nil {
		return c, err
	}

	switch c.Kind {
	case common.CmdSendWorld:
	case common.CmdRequestWorld:
		c.Client, err = buf.ReadString()
	case common.CmdClientRunning:
		if c.Client, err = buf.ReadString(); err != nil {
			return c, err
		}
		c.Frame, err = buf.ReadInt32()
	case common.CmdInput:
		if c.Input.Phase, err = buf.ReadByte(); err != nil {
			return c, err
		}
		if c.Input.Finger, err = buf.ReadInt32(); err != nil {
			return c, err
		}
		if c.Input.X, err = buf.ReadFloat32(); err != nil {
			return c, err
		}
		c.Input.Y, err = buf.ReadFloat32()
	default:
		err = fmt.Errorf("command %d: %w", c.Kind, common.ErrUnknownAttribute)
	}
	return c, err
}

// EncodeCommands builds a packet carrying only commands. Clients talk to
// the server this way.
func EncodeCommands(seq uint32, cmds ...Command) ([]byte, error) {
	var buf common.Buffer
	for _, c := range cmds {
		if err := writeCommand(&buf, c); err != nil {
			return nil, err
		}
	}
	return common.EncodePacket(seq, buf.Bytes()), nil
}
