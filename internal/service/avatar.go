package service

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// AvatarSize 是头像边长（像素）
const AvatarSize = 128

var avatarPalette = []color.RGBA{
	{R: 0x06, G: 0xb6, B: 0xd4, A: 0xff},
	{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff},
	{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
	{R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
	{R: 0xef, G: 0x44, B: 0x44, A: 0xff},
	{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
}

// Initials 取名字前两个单词的首字母，非 ASCII 字母用 ? 代替
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if r > unicode.MaxASCII || !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			r = '?'
		}
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// RenderAvatar 生成首字母头像 PNG，背景色由名字决定
func RenderAvatar(name string) ([]byte, error) {
	initials := Initials(name)
	face := basicfont.Face7x13

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	background := avatarPalette[h.Sum32()%uint32(len(avatarPalette))]

	// 先在小画布上绘制，再放大
	const small = 32
	canvas := image.NewRGBA(image.Rect(0, 0, small, small))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: canvas, Src: image.White, Face: face}
	width := drawer.MeasureString(initials).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	drawer.Dot = fixed.P((small-width)/2, (small-height)/2+metrics.Ascent.Ceil())
	drawer.DrawString(initials)

	out := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	draw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
