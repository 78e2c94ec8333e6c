package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyrange/smbhost/internal/smbus"
)

var (
	xferAddr string
	xferReg  string
	xferKind string
)

func addXferFlags(cmd *cobra.Command, withReg bool) {
	cmd.Flags().StringVarP(&xferAddr, "addr", "a", "", "7-bit target address (e.g. 0x50)")
	cmd.MarkFlagRequired("addr")
	if withReg {
		cmd.Flags().StringVarP(&xferReg, "reg", "r", "0", "command/register byte")
		cmd.Flags().StringVarP(&xferKind, "kind", "k", "byte-data", "transaction kind (byte, byte-data, word-data, block-data)")
	}
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read from a target device.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseByte(xferAddr)
		if err != nil {
			return err
		}
		reg, err := parseByte(xferReg)
		if err != nil {
			return err
		}
		kind, err := smbus.ParseKind(xferKind)
		if err != nil {
			return err
		}

		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		ctrl := d.Controller()

		switch kind {
		case smbus.Byte:
			v, err := ctrl.ReceiveByte(addr)
			if err != nil {
				return err
			}
			fmt.Printf("0x%02x\n", v)
		case smbus.ByteData:
			v, err := ctrl.ReadByteData(addr, reg)
			if err != nil {
				return err
			}
			fmt.Printf("0x%02x\n", v)
		case smbus.WordData:
			v, err := ctrl.ReadWordData(addr, reg)
			if err != nil {
				return err
			}
			fmt.Printf("0x%04x\n", v)
		case smbus.BlockData:
			block, err := ctrl.ReadBlockData(addr, reg)
			if err != nil {
				return err
			}
			fmt.Printf("%d bytes:", len(block))
			for _, b := range block {
				fmt.Printf(" %02x", b)
			}
			fmt.Println()
		default:
			return fmt.Errorf("kind %s is not readable", kind)
		}
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <byte>...",
	Short: "Write to a target device.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseByte(xferAddr)
		if err != nil {
			return err
		}
		reg, err := parseByte(xferReg)
		if err != nil {
			return err
		}
		kind, err := smbus.ParseKind(xferKind)
		if err != nil {
			return err
		}
		data := make([]byte, len(args))
		for i, a := range args {
			if data[i], err = parseByte(a); err != nil {
				return err
			}
		}

		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		ctrl := d.Controller()

		switch kind {
		case smbus.Byte:
			return ctrl.SendByte(addr, data[0])
		case smbus.ByteData:
			return ctrl.WriteByteData(addr, reg, data[0])
		case smbus.WordData:
			if len(data) != 2 {
				return fmt.Errorf("word-data write needs exactly 2 bytes")
			}
			return ctrl.WriteWordData(addr, reg, uint16(data[0])|uint16(data[1])<<8)
		case smbus.BlockData:
			return ctrl.WriteBlockData(addr, reg, data)
		default:
			return fmt.Errorf("kind %s is not writable", kind)
		}
	},
}

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Send a quick transaction (address and direction bit only).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseByte(xferAddr)
		if err != nil {
			return err
		}
		read, _ := cmd.Flags().GetBool("read")
		rw := smbus.Write
		if read {
			rw = smbus.Read
		}

		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Controller().Quick(addr, rw); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	addXferFlags(readCmd, true)
	addXferFlags(writeCmd, true)
	addXferFlags(quickCmd, false)
	quickCmd.Flags().Bool("read", false, "send the quick transaction with the read direction bit")
}
