package escpos

// ESC/POS command bytes for Epson TM-series kitchen printers. These are
// opaque wire tokens; they must be written to the stream verbatim and in
// order, never passed through any text encoding.
var (
	cmdInit        = []byte{0x1b, 0x40}             // ESC @  reset printer state
	cmdBoldOn      = []byte{0x1b, 0x45, 0x01}       // ESC E 1
	cmdBoldOff     = []byte{0x1b, 0x45, 0x00}       // ESC E 0
	cmdDoubleOn    = []byte{0x1d, 0x21, 0x11}       // GS ! double width+height
	cmdDoubleOff   = []byte{0x1d, 0x21, 0x00}       // GS ! normal
	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00}       // ESC a 0
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01}       // ESC a 1
	cmdFeed        = []byte{0x1b, 0x64, 0x04}       // ESC d 4  feed 4 lines
	cmdCut         = []byte{0x1d, 0x56, 0x42, 0x00} // GS V B 0  partial cut
	cmdPulse       = []byte{0x1b, 0x70, 0x00, 0x19, 0xfa} // ESC p  drawer/buzzer pulse
)

const lf = byte('\n')
