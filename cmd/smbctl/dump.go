package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dumpAddr string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump all 256 byte registers of a target device.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseByte(dumpAddr)
		if err != nil {
			return err
		}

		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		ctrl := d.Controller()

		var buf [256]byte
		for reg := 0; reg < 256; reg++ {
			v, err := ctrl.ReadByteData(addr, uint8(reg))
			if err != nil {
				return fmt.Errorf("read 0x%02x/0x%02x: %w", addr, reg, err)
			}
			buf[reg] = v
		}

		fmt.Print(hexdump(buf[:]))
		return nil
	},
}

// hexdump renders 16 bytes per row with a printable-ASCII gutter.
func hexdump(data []byte) string {
	var sb strings.Builder
	for row := 0; row < len(data); row += 16 {
		fmt.Fprintf(&sb, "%02x:", row)
		for i := row; i < row+16 && i < len(data); i++ {
			fmt.Fprintf(&sb, " %02x", data[i])
		}
		sb.WriteString("  ")
		for i := row; i < row+16 && i < len(data); i++ {
			c := data[i]
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpAddr, "addr", "a", "", "7-bit target address (e.g. 0x50)")
	dumpCmd.MarkFlagRequired("addr")
}
