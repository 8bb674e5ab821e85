package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Capture reads the current contents of windowID, including the mapped
// children drawn inside it, as an RGBA image. The window must be viewable.
func (c *Connection) Capture(windowID xproto.Window) (*image.RGBA, error) {
	geom, err := xwindow.RawGeometry(c.XUtil, xproto.Drawable(windowID))
	if err != nil {
		return nil, fmt.Errorf("geometry of 0x%x: %w", windowID, err)
	}
	width, height := geom.Width(), geom.Height()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window 0x%x has empty geometry %dx%d", windowID, width, height)
	}

	reply, err := xproto.GetImage(c.XUtil.Conn(), xproto.ImageFormatZPixmap,
		xproto.Drawable(windowID), 0, 0, uint16(width), uint16(height),
		0xffffffff).Reply()
	if err != nil {
		return nil, fmt.Errorf("get image of 0x%x: %w", windowID, err)
	}

	bpp := 0
	for _, f := range c.XUtil.Setup().PixmapFormats {
		if f.Depth == reply.Depth {
			bpp = int(f.BitsPerPixel)
			break
		}
	}
	if bpp == 0 {
		return nil, fmt.Errorf("no pixmap format for depth %d", reply.Depth)
	}
	return zpixmapToRGBA(reply.Data, width, height, bpp)
}

// zpixmapToRGBA converts little-endian BGR(x) scanlines into an opaque RGBA
// image. Rows may carry padding, so the stride comes from the data length.
func zpixmapToRGBA(data []byte, width, height, bpp int) (*image.RGBA, error) {
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported bits per pixel: %d", bpp)
	}
	bytesPer := bpp / 8
	if height <= 0 || len(data) < width*height*bytesPer {
		return nil, fmt.Errorf("image data too short: %d bytes for %dx%d at %d bpp", len(data), width, height, bpp)
	}
	stride := len(data) / height

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		out := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			i, o := x*bytesPer, x*4
			out[o] = row[i+2]
			out[o+1] = row[i+1]
			out[o+2] = row[i]
			out[o+3] = 0xff
		}
	}
	return img, nil
}
