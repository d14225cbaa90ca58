package pmx

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// fixtureMaterial describes one material of a test PMX file.
type fixtureMaterial struct {
	name       string
	tex        int
	sphere     int
	mode       uint8
	sharedToon bool
	toon       int
	memo       string
	surfaces   int32
}

// fixture builds PMX bytes independently of the package's own writer.
type fixture struct {
	magic     string
	version   float32
	flagCount uint8
	enc       uint8
	vec4      uint8
	widths    [6]uint8 // vertex, texture, material, bone, morph, rigid body
	name      string
	comment   string
	deforms   []uint8 // one vertex per entry
	faces     []int
	textures  []string
	materials []fixtureMaterial
	trailer   []byte
}

func defaultFixture() fixture {
	return fixture{
		magic:     "PMX ",
		version:   2.0,
		flagCount: 8,
		enc:       0,
		vec4:      1,
		widths:    [6]uint8{2, 1, 1, 2, 1, 1},
		name:      "ミク",
		comment:   "test model",
		deforms:   []uint8{0, 1, 2, 3},
		faces:     []int{0, 1, 2, 1, 2, 3},
		textures:  []string{"a.png", "b.png", "sph\\env.spa", "toon\\custom.bmp"},
		materials: []fixtureMaterial{
			{name: "body", tex: 0, sphere: 2, mode: 1, sharedToon: true, toon: 1, memo: "skin", surfaces: 3},
			{name: "hair", tex: 1, sphere: -1, mode: 0, toon: 3, surfaces: 3},
			{name: "face", tex: -1, sphere: -1, mode: 0, toon: -1, surfaces: 0},
		},
		trailer: []byte{0, 0, 0, 0, 1, 0, 0, 0, 0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0, 0, 0, 0, 0},
	}
}

func (f fixture) text(buf *bytes.Buffer, s string) {
	var raw []byte
	if f.enc == 0 {
		for _, u := range utf16.Encode([]rune(s)) {
			raw = binary.LittleEndian.AppendUint16(raw, u)
		}
	} else {
		raw = []byte(s)
	}
	binary.Write(buf, binary.LittleEndian, int32(len(raw)))
	buf.Write(raw)
}

func (f fixture) index(buf *bytes.Buffer, width uint8, v int) {
	switch width {
	case 1:
		buf.WriteByte(byte(int8(v)))
	case 2:
		binary.Write(buf, binary.LittleEndian, int16(v))
	default:
		binary.Write(buf, binary.LittleEndian, int32(v))
	}
}

// geometry returns the encoded vertex and face sections.
func (f fixture) geometry() []byte {
	var buf bytes.Buffer
	bone := f.widths[3]

	binary.Write(&buf, binary.LittleEndian, int32(len(f.deforms)))
	for i, kind := range f.deforms {
		pos := [3]float32{float32(i), 1, 2}
		binary.Write(&buf, binary.LittleEndian, pos)
		binary.Write(&buf, binary.LittleEndian, [3]float32{0, 1, 0})
		binary.Write(&buf, binary.LittleEndian, [2]float32{0.5, 0.5})
		for j := 0; j < int(f.vec4); j++ {
			binary.Write(&buf, binary.LittleEndian, [4]float32{1, 2, 3, 4})
		}
		buf.WriteByte(kind)
		switch kind {
		case 0:
			f.index(&buf, bone, 0)
		case 1:
			f.index(&buf, bone, 0)
			f.index(&buf, bone, 1)
			binary.Write(&buf, binary.LittleEndian, float32(0.5))
		case 2, 4:
			for b := 0; b < 4; b++ {
				f.index(&buf, bone, b)
			}
			binary.Write(&buf, binary.LittleEndian, [4]float32{0.25, 0.25, 0.25, 0.25})
		case 3:
			f.index(&buf, bone, 0)
			f.index(&buf, bone, 1)
			binary.Write(&buf, binary.LittleEndian, float32(0.5))
			binary.Write(&buf, binary.LittleEndian, [9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
		}
		binary.Write(&buf, binary.LittleEndian, float32(1))
	}

	binary.Write(&buf, binary.LittleEndian, int32(len(f.faces)))
	for _, v := range f.faces {
		f.index(&buf, f.widths[0], v)
	}
	return buf.Bytes()
}

func (f fixture) bytes() []byte {
	var buf bytes.Buffer

	buf.WriteString(f.magic)
	binary.Write(&buf, binary.LittleEndian, f.version)
	buf.WriteByte(f.flagCount)
	buf.WriteByte(f.enc)
	buf.WriteByte(f.vec4)
	buf.Write(f.widths[:])

	f.text(&buf, f.name)
	f.text(&buf, "Miku")
	f.text(&buf, f.comment)
	f.text(&buf, "")

	buf.Write(f.geometry())

	binary.Write(&buf, binary.LittleEndian, int32(len(f.textures)))
	for _, t := range f.textures {
		f.text(&buf, t)
	}

	tex := f.widths[1]
	binary.Write(&buf, binary.LittleEndian, int32(len(f.materials)))
	for _, m := range f.materials {
		f.text(&buf, m.name)
		f.text(&buf, m.name+"_en")
		binary.Write(&buf, binary.LittleEndian, [4]float32{1, 1, 1, 1})
		binary.Write(&buf, binary.LittleEndian, [3]float32{0.5, 0.5, 0.5})
		binary.Write(&buf, binary.LittleEndian, float32(5))
		binary.Write(&buf, binary.LittleEndian, [3]float32{0.2, 0.2, 0.2})
		buf.WriteByte(byte(DrawDoubleSided | DrawEdge))
		binary.Write(&buf, binary.LittleEndian, [4]float32{0, 0, 0, 1})
		binary.Write(&buf, binary.LittleEndian, float32(1))
		f.index(&buf, tex, m.tex)
		f.index(&buf, tex, m.sphere)
		buf.WriteByte(m.mode)
		if m.sharedToon {
			buf.WriteByte(1)
			buf.WriteByte(byte(m.toon))
		} else {
			buf.WriteByte(0)
			f.index(&buf, tex, m.toon)
		}
		f.text(&buf, m.memo)
		binary.Write(&buf, binary.LittleEndian, m.surfaces)
	}

	buf.Write(f.trailer)
	return buf.Bytes()
}

// mustParse parses the fixture or panics; fixtures are always well formed.
func (f fixture) mustParse() *Document {
	doc, err := Parse(f.bytes())
	if err != nil {
		panic(err)
	}
	return doc
}
