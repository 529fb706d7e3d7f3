package modes

// VIS codes of the built-in modes.
const (
	VISRobot36  uint8 = 0x08
	VISRobot72  uint8 = 0x0C
	VISMartin2  uint8 = 0x28
	VISMartin1  uint8 = 0x2C
	VISWraase   uint8 = 0x37
	VISScottie2 uint8 = 0x38
	VISScottie1 uint8 = 0x3C
	VISScottieX uint8 = 0x4C
	VISPD50     uint8 = 0x5D
	VISPD290    uint8 = 0x5E
	VISPD120    uint8 = 0x5F
	VISPD180    uint8 = 0x60
	VISPD240    uint8 = 0x61
	VISPD160    uint8 = 0x62
	VISPD90     uint8 = 0x63
	VISPasokon3 uint8 = 0x71
	VISPasokon5 uint8 = 0x72
	VISPasokon7 uint8 = 0x73
)

func syncPulse(ms float64) Segment {
	return Segment{Role: RoleSync, Duration: ms, Freq: FreqSync}
}

func porch(ms, freq float64) Segment {
	return Segment{Role: RolePorch, Duration: ms, Freq: freq}
}

func video(role Role, ms float64) Segment {
	return Segment{Role: role, Duration: ms, Low: FreqBlack, High: FreqWhite}
}

func builtin() []Descriptor {
	return []Descriptor{
		martin("Martin M1", "M1", VISMartin1, 0.4576),
		martin("Martin M2", "M2", VISMartin2, 0.2288),
		scottie("Scottie S1", "S1", VISScottie1, 0.4320125),
		scottie("Scottie S2", "S2", VISScottie2, 0.2752),
		scottie("Scottie DX", "SDX", VISScottieX, 1.08),
		robot36(),
		robot72(),
		wraase180(),
		pd("PD-50", "PD50", VISPD50, 0.286, 320, 256),
		pd("PD-90", "PD90", VISPD90, 0.532, 320, 256),
		pd("PD-120", "PD120", VISPD120, 0.19, 640, 496),
		pd("PD-160", "PD160", VISPD160, 0.382, 512, 400),
		pd("PD-180", "PD180", VISPD180, 0.286, 640, 496),
		pd("PD-240", "PD240", VISPD240, 0.382, 640, 496),
		pd("PD-290", "PD290", VISPD290, 0.286, 800, 616),
		pasokon("Pasokon P3", "P3", VISPasokon3, 1000.0/4800.0),
		pasokon("Pasokon P5", "P5", VISPasokon5, 1000.0/3200.0),
		pasokon("Pasokon P7", "P7", VISPasokon7, 1000.0/2400.0),
	}
}

// Martin: sync, porch, G, sep, B, sep, R, sep.
func martin(name, short string, vis uint8, pixel float64) Descriptor {
	const width = 320
	ch := pixel * width
	return Descriptor{
		Name: name, ShortName: short, VIS: vis,
		Width: width, Height: 256, Color: ColorRGB, RowsPerLine: 1,
		Layouts: [][]Segment{{
			syncPulse(4.862),
			porch(0.572, FreqBlack),
			video(RoleGreen, ch),
			porch(0.572, FreqBlack),
			video(RoleBlue, ch),
			porch(0.572, FreqBlack),
			video(RoleRed, ch),
			porch(0.572, FreqBlack),
		}},
	}
}

// Scottie puts the sync between the blue and red channels and sends one
// extra sync ahead of the first line.
func scottie(name, short string, vis uint8, pixel float64) Descriptor {
	const width = 320
	ch := pixel * width
	return Descriptor{
		Name: name, ShortName: short, VIS: vis,
		Width: width, Height: 256, Color: ColorRGB, RowsPerLine: 1,
		LeadingSync: 9,
		Layouts: [][]Segment{{
			porch(1.5, FreqBlack),
			video(RoleGreen, ch),
			porch(1.5, FreqBlack),
			video(RoleBlue, ch),
			syncPulse(9),
			porch(1.5, FreqBlack),
			video(RoleRed, ch),
		}},
	}
}

// Robot 36 sends R-Y on even lines and B-Y on odd lines; each chroma
// segment covers the line pair.
func robot36() Descriptor {
	chroma := func(role Role, sep float64, row int) []Segment {
		c := video(role, 44)
		c.Row, c.Rows = row, 2
		return []Segment{
			syncPulse(9),
			porch(3, FreqBlack),
			video(RoleLuma, 88),
			porch(4.5, sep),
			porch(1.5, FreqLeader),
			c,
		}
	}
	return Descriptor{
		Name: "Robot 36", ShortName: "R36", VIS: VISRobot36,
		Width: 320, Height: 240, Color: ColorYCbCr, RowsPerLine: 1,
		Layouts: [][]Segment{
			chroma(RoleChromaRY, FreqBlack, 0),
			chroma(RoleChromaBY, FreqWhite, -1),
		},
	}
}

func robot72() Descriptor {
	return Descriptor{
		Name: "Robot 72", ShortName: "R72", VIS: VISRobot72,
		Width: 320, Height: 240, Color: ColorYCbCr, RowsPerLine: 1,
		Layouts: [][]Segment{{
			syncPulse(9),
			porch(3, FreqBlack),
			video(RoleLuma, 138),
			porch(4.5, FreqBlack),
			porch(1.5, FreqLeader),
			video(RoleChromaRY, 69),
			porch(4.5, FreqWhite),
			porch(1.5, FreqLeader),
			video(RoleChromaBY, 69),
		}},
	}
}

func wraase180() Descriptor {
	return Descriptor{
		Name: "Wraase SC2-180", ShortName: "SC180", VIS: VISWraase,
		Width: 320, Height: 256, Color: ColorRGB, RowsPerLine: 1,
		Layouts: [][]Segment{{
			syncPulse(5.5437),
			porch(0.5, FreqBlack),
			video(RoleRed, 235),
			video(RoleGreen, 235),
			video(RoleBlue, 235),
		}},
	}
}

// PD sends two image rows per scan line: Y of the first row, the shared
// R-Y and B-Y, then Y of the second row.
func pd(name, short string, vis uint8, pixel float64, width, height int) Descriptor {
	ch := pixel * float64(width)
	y0 := video(RoleLuma, ch)
	ry := video(RoleChromaRY, ch)
	ry.Rows = 2
	by := video(RoleChromaBY, ch)
	by.Rows = 2
	y1 := video(RoleLuma, ch)
	y1.Row = 1
	return Descriptor{
		Name: name, ShortName: short, VIS: vis,
		Width: width, Height: height, Color: ColorYCbCr, RowsPerLine: 2,
		Layouts: [][]Segment{{
			syncPulse(20),
			porch(2.08, FreqBlack),
			y0, ry, by, y1,
		}},
	}
}

func pasokon(name, short string, vis uint8, unit float64) Descriptor {
	const width = 640
	ch := unit * width
	return Descriptor{
		Name: name, ShortName: short, VIS: vis,
		Width: width, Height: 496, Color: ColorRGB, RowsPerLine: 1,
		Layouts: [][]Segment{{
			syncPulse(25 * unit),
			porch(5*unit, FreqBlack),
			video(RoleRed, ch),
			porch(5*unit, FreqBlack),
			video(RoleGreen, ch),
			porch(5*unit, FreqBlack),
			video(RoleBlue, ch),
			porch(5*unit, FreqBlack),
		}},
	}
}
