package imageutil

import "image/color"

// CityscapesPalette holds the colors of the 19 Cityscapes train classes.
var CityscapesPalette = []color.RGBA{
	{128, 64, 128, 255},  // road
	{244, 35, 232, 255},  // sidewalk
	{70, 70, 70, 255},    // building
	{102, 102, 156, 255}, // wall
	{190, 153, 153, 255}, // fence
	{153, 153, 153, 255}, // pole
	{250, 170, 30, 255},  // traffic light
	{220, 220, 0, 255},   // traffic sign
	{107, 142, 35, 255},  // vegetation
	{152, 251, 152, 255}, // terrain
	{70, 130, 180, 255},  // sky
	{220, 20, 60, 255},   // person
	{255, 0, 0, 255},     // rider
	{0, 0, 142, 255},     // car
	{0, 0, 70, 255},      // truck
	{0, 60, 100, 255},    // bus
	{0, 80, 100, 255},    // train
	{0, 0, 230, 255},     // motorcycle
	{119, 11, 32, 255},   // bicycle
}

// Palette returns n colors: the Cityscapes colors first, then a
// deterministic spread for the rest.
func Palette(n int) []color.RGBA {
	p := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		if i < len(CityscapesPalette) {
			p[i] = CityscapesPalette[i]
			continue
		}
		// bit-interleaved colormap (as used by PASCAL VOC)
		var r, g, b uint8
		c := i
		for j := 0; j < 8; j++ {
			r |= uint8((c>>0)&1) << uint(7-j)
			g |= uint8((c>>1)&1) << uint(7-j)
			b |= uint8((c>>2)&1) << uint(7-j)
			c >>= 3
		}
		p[i] = color.RGBA{r, g, b, 255}
	}
	return p
}
