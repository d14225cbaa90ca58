package pmx

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qxdqhr/sa2kit-sub004/pkg/encoding"
)

// newTestEditor builds an editor over a blank document holding the given
// texture paths and materials.
func newTestEditor(t *testing.T, paths []string, materials []Material, opts ...EditorOption) *Editor {
	t.Helper()
	doc := NewDocument(encoding.UTF16LE)
	for i, p := range paths {
		doc.Textures = append(doc.Textures, Texture{Index: i, Path: p})
	}
	doc.Materials = materials
	return NewEditor(doc, opts...)
}

func unbound(name string) Material {
	return Material{Name: name, TextureIndex: -1, SphereTextureIndex: -1, Toon: NoToon()}
}

func texturePaths(e *Editor) []string {
	var out []string
	for _, t := range e.Textures() {
		out = append(out, t.Path)
	}
	return out
}

func TestEditor_ScenarioDeleteShiftsReference(t *testing.T) {
	m := unbound("m0")
	m.TextureIndex = 1
	e := newTestEditor(t, []string{"a.png", "b.png"}, []Material{m})

	if err := e.DeleteTexture(0); err != nil {
		t.Fatalf("DeleteTexture() error: %v", err)
	}
	if got := texturePaths(e); !reflect.DeepEqual(got, []string{"b.png"}) {
		t.Errorf("textures = %v", got)
	}
	if got := e.Materials()[0].TextureIndex; got != 0 {
		t.Errorf("material 0 texture index = %d, want 0", got)
	}
	if e.Textures()[0].Index != 0 {
		t.Errorf("texture not renumbered: %+v", e.Textures()[0])
	}
}

func TestEditor_ScenarioSphereAdd(t *testing.T) {
	e := newTestEditor(t, []string{"env.spa"}, []Material{unbound("m0")})

	if err := e.SetMaterialSphereTexture(0, 0, SphereAdd); err != nil {
		t.Fatalf("SetMaterialSphereTexture() error: %v", err)
	}
	mp, err := e.Mapping(0)
	if err != nil {
		t.Fatal(err)
	}
	want := &SphereRef{Index: 0, Path: "env.spa", Mode: "Add"}
	if !reflect.DeepEqual(mp.SphereTexture, want) {
		t.Errorf("sphere = %+v, want %+v", mp.SphereTexture, want)
	}
}

func TestEditor_ScenarioAddTexture(t *testing.T) {
	e := newTestEditor(t, []string{"a.png", "b.png"}, nil)
	before := e.History().Len()

	idx, err := e.AddTexture("c.png")
	if err != nil {
		t.Fatalf("AddTexture() error: %v", err)
	}
	if idx != 2 {
		t.Errorf("index = %d, want 2", idx)
	}
	if n := len(e.Textures()); n != 3 {
		t.Errorf("texture count = %d, want 3", n)
	}
	if got := e.History().Len() - before; got != 1 {
		t.Errorf("history grew by %d, want 1", got)
	}
	entry := e.History().Entries()[0]
	if entry.Operation.Kind != OpAddTexture || entry.Description != "add texture: c.png" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestEditor_ScenarioDeleteReferenced(t *testing.T) {
	m := unbound("m0")
	m.SphereTextureIndex = 1
	m.SphereMode = SphereMultiply
	e := newTestEditor(t, []string{"a.png", "b.spa"}, []Material{m})

	err := e.DeleteTexture(1)
	if !errors.Is(err, ErrReferentialIntegrity) {
		t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
	}
	var ee *EditError
	if !errors.As(err, &ee) || ee.References != 1 || ee.Op != OpDeleteTexture {
		t.Errorf("unexpected error detail %+v", ee)
	}
	if n := len(e.Textures()); n != 2 {
		t.Errorf("texture count = %d, want 2", n)
	}
	if e.History().Len() != 0 {
		t.Error("failed edit was recorded")
	}
}

func TestEditor_DeleteReferencedByAnySlot(t *testing.T) {
	tests := []struct {
		name string
		bind func(m *Material)
	}{
		{"main", func(m *Material) { m.TextureIndex = 0 }},
		{"sphere", func(m *Material) { m.SphereTextureIndex = 0; m.SphereMode = SphereAdd }},
		{"sphere with mode none", func(m *Material) { m.SphereTextureIndex = 0 }},
		{"indexed toon", func(m *Material) { m.Toon = IndexedToon(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := unbound("m")
			tt.bind(&m)
			e := newTestEditor(t, []string{"x.png"}, []Material{m, unbound("other")})
			if err := e.DeleteTexture(0); !errors.Is(err, ErrReferentialIntegrity) {
				t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
			}
			if len(e.Textures()) != 1 {
				t.Error("texture table changed")
			}
		})
	}
}

func TestEditor_DeleteShift(t *testing.T) {
	m0 := unbound("low")
	m0.TextureIndex = 0
	m0.SphereTextureIndex = 1
	m0.SphereMode = SphereMultiply
	m0.Toon = SharedToon(3)

	m1 := unbound("high")
	m1.TextureIndex = 3
	m1.SphereTextureIndex = 4
	m1.SphereMode = SphereAdd
	m1.Toon = IndexedToon(4)

	e := newTestEditor(t, []string{"t0", "t1", "t2", "t3", "t4"}, []Material{m0, m1})
	if err := e.DeleteTexture(2); err != nil {
		t.Fatalf("DeleteTexture() error: %v", err)
	}

	if got := texturePaths(e); !reflect.DeepEqual(got, []string{"t0", "t1", "t3", "t4"}) {
		t.Errorf("textures = %v", got)
	}
	for i, tex := range e.Textures() {
		if tex.Index != i {
			t.Errorf("texture %d has index %d", i, tex.Index)
		}
	}

	low := e.Materials()[0]
	if low.TextureIndex != 0 || low.SphereTextureIndex != 1 || low.Toon != SharedToon(3) {
		t.Errorf("indices below the deleted one changed: %+v", low)
	}
	high := e.Materials()[1]
	if high.TextureIndex != 2 || high.SphereTextureIndex != 3 || high.Toon != IndexedToon(3) {
		t.Errorf("indices above the deleted one not shifted: %+v", high)
	}

	mp := e.Mappings()[1]
	if mp.MainTexture.Path != "t3" || mp.SphereTexture.Path != "t4" || mp.ToonTexture.Path != "t4" {
		t.Errorf("mapping not regenerated: %+v", mp)
	}
}

func TestEditor_DeleteKeepsSharedToonIDs(t *testing.T) {
	m := unbound("m")
	m.Toon = SharedToon(5)
	e := newTestEditor(t, []string{"t0", "t1", "t2"}, []Material{m})

	if err := e.DeleteTexture(0); err != nil {
		t.Fatal(err)
	}
	if got := e.Materials()[0].Toon; got != SharedToon(5) {
		t.Errorf("shared toon = %v, want Shared(5)", got)
	}
}

func TestEditor_SetMainTexture(t *testing.T) {
	paths := []string{"a.png", "b.png", "c.png"}
	materials := []Material{unbound("m0"), unbound("m1")}

	for m := range materials {
		for tex := range paths {
			e := newTestEditor(t, paths, append([]Material(nil), materials...))
			if err := e.SetMaterialMainTexture(m, tex); err != nil {
				t.Fatalf("SetMaterialMainTexture(%d, %d) error: %v", m, tex, err)
			}
			mp := e.Mappings()[m]
			if mp.MainTexture == nil || mp.MainTexture.Index != tex || mp.MainTexture.Path != paths[tex] {
				t.Errorf("mapping[%d].MainTexture = %+v, want %d/%s", m, mp.MainTexture, tex, paths[tex])
			}
		}
	}

	e := newTestEditor(t, paths, []Material{unbound("m0")})
	if err := e.SetMaterialMainTexture(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.SetMaterialMainTexture(0, -1); err != nil {
		t.Fatalf("unbinding error: %v", err)
	}
	if e.Mappings()[0].MainTexture != nil {
		t.Error("unbound main texture still mapped")
	}
}

func TestEditor_OutOfRange(t *testing.T) {
	m := unbound("m0")
	m.TextureIndex = 0

	tests := []struct {
		name    string
		edit    func(e *Editor) error
		wantErr error
	}{
		{"main material negative", func(e *Editor) error { return e.SetMaterialMainTexture(-1, 0) }, ErrIndexOutOfRange},
		{"main material past end", func(e *Editor) error { return e.SetMaterialMainTexture(1, 0) }, ErrIndexOutOfRange},
		{"main texture past end", func(e *Editor) error { return e.SetMaterialMainTexture(0, 2) }, ErrIndexOutOfRange},
		{"main texture -2", func(e *Editor) error { return e.SetMaterialMainTexture(0, -2) }, ErrIndexOutOfRange},
		{"sphere texture past end", func(e *Editor) error { return e.SetMaterialSphereTexture(0, 5, SphereAdd) }, ErrIndexOutOfRange},
		{"sphere mode invalid", func(e *Editor) error { return e.SetMaterialSphereTexture(0, 0, SphereMode(7)) }, ErrValidation},
		{"toon texture past end", func(e *Editor) error { return e.SetMaterialToonTexture(0, 2, false) }, ErrIndexOutOfRange},
		{"shared toon 10", func(e *Editor) error { return e.SetMaterialToonTexture(0, 10, true) }, ErrIndexOutOfRange},
		{"shared toon -1", func(e *Editor) error { return e.SetMaterialToonTexture(0, -1, true) }, ErrIndexOutOfRange},
		{"update texture past end", func(e *Editor) error { return e.UpdateTexture(2, "x.png") }, ErrIndexOutOfRange},
		{"update texture empty path", func(e *Editor) error { return e.UpdateTexture(0, "  ") }, ErrValidation},
		{"delete texture past end", func(e *Editor) error { return e.DeleteTexture(2) }, ErrIndexOutOfRange},
		{"delete texture -1", func(e *Editor) error { return e.DeleteTexture(-1) }, ErrIndexOutOfRange},
		{"add empty path", func(e *Editor) error { _, err := e.AddTexture(""); return err }, ErrValidation},
		{"update material past end", func(e *Editor) error {
			name := "x"
			return e.UpdateMaterial(3, MaterialPatch{Name: &name})
		}, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t, []string{"a.png", "b.png"}, []Material{m})
			before := e.Document().Clone()
			mappings := e.Mappings()

			err := tt.edit(e)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var ee *EditError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *EditError, got %T", err)
			}
			if !reflect.DeepEqual(e.Document(), before) {
				t.Error("document changed by failed edit")
			}
			if !reflect.DeepEqual(e.Mappings(), mappings) {
				t.Error("mappings changed by failed edit")
			}
			if e.History().Len() != 0 {
				t.Error("failed edit recorded in history")
			}
		})
	}
}

func TestEditor_SphereUnbindForcesNone(t *testing.T) {
	m := unbound("m0")
	m.SphereTextureIndex = 0
	m.SphereMode = SphereAdd
	e := newTestEditor(t, []string{"env.spa"}, []Material{m})

	if err := e.SetMaterialSphereTexture(0, -1, SphereMultiply); err != nil {
		t.Fatal(err)
	}
	got := e.Materials()[0]
	if got.SphereTextureIndex != -1 || got.SphereMode != SphereNone {
		t.Errorf("sphere = %d/%v, want -1/None", got.SphereTextureIndex, got.SphereMode)
	}
	if e.Mappings()[0].SphereTexture != nil {
		t.Error("sphere still mapped")
	}
}

func TestEditor_ToonBindings(t *testing.T) {
	e := newTestEditor(t, []string{"a.png", "toon.bmp"}, []Material{unbound("m0")})

	if err := e.SetMaterialToonTexture(0, 3, true); err != nil {
		t.Fatal(err)
	}
	mp := e.Mappings()[0]
	want := &ToonRef{Index: 3, Path: "toon03.bmp", IsShared: true}
	if !reflect.DeepEqual(mp.ToonTexture, want) {
		t.Errorf("shared toon = %+v, want %+v", mp.ToonTexture, want)
	}

	if err := e.SetMaterialToonTexture(0, 1, false); err != nil {
		t.Fatal(err)
	}
	mp = e.Mappings()[0]
	want = &ToonRef{Index: 1, Path: "toon.bmp"}
	if !reflect.DeepEqual(mp.ToonTexture, want) {
		t.Errorf("indexed toon = %+v, want %+v", mp.ToonTexture, want)
	}

	if err := e.SetMaterialToonTexture(0, -1, false); err != nil {
		t.Fatal(err)
	}
	if got := e.Materials()[0].Toon; got.Kind != ToonNone {
		t.Errorf("toon = %v, want None", got)
	}
	if e.Mappings()[0].ToonTexture != nil {
		t.Error("unbound toon still mapped")
	}
}

func TestEditor_UpdateTexture(t *testing.T) {
	m := unbound("m0")
	m.TextureIndex = 0
	e := newTestEditor(t, []string{"old.png"}, []Material{m})

	if err := e.UpdateTexture(0, "new.png"); err != nil {
		t.Fatal(err)
	}
	if got := e.Mappings()[0].MainTexture.Path; got != "new.png" {
		t.Errorf("mapping path = %q", got)
	}
	entry := e.History().Entries()[0]
	if entry.Operation.OldPath != "old.png" || entry.Operation.NewPath != "new.png" {
		t.Errorf("operation = %+v", entry.Operation)
	}
	if entry.Description != "update texture 0: old.png -> new.png" {
		t.Errorf("description = %q", entry.Description)
	}
}

func TestEditor_AddTextureWidthLimit(t *testing.T) {
	doc := NewDocument(encoding.UTF8)
	doc.Header.Globals.TextureIndexSize = Width1
	for i := 0; i < 127; i++ {
		doc.Textures = append(doc.Textures, Texture{Index: i, Path: "t.png"})
	}
	e := NewEditor(doc)

	idx, err := e.AddTexture("last.png")
	if err != nil || idx != 127 {
		t.Fatalf("AddTexture() = %d, %v; want 127", idx, err)
	}
	if _, err := e.AddTexture("overflow.png"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(e.Textures()) != 128 {
		t.Errorf("texture count = %d", len(e.Textures()))
	}
	if _, err := e.Serialize(); err != nil {
		t.Errorf("Serialize() error: %v", err)
	}
}

func TestEditor_UpdateMaterial(t *testing.T) {
	e := newTestEditor(t, []string{"a.png", "b.png"}, []Material{unbound("m0")})

	name := "skin"
	tex := 1
	surfaces := int32(9)
	mode := SphereAdd
	patch := MaterialPatch{
		Name:         &name,
		Diffuse:      []float32{0.5, 0.5, 0.5, 1},
		TextureIndex: &tex,
		SphereMode:   &mode,
		SurfaceCount: &surfaces,
	}
	if err := e.UpdateMaterial(0, patch); err != nil {
		t.Fatalf("UpdateMaterial() error: %v", err)
	}

	m := e.Materials()[0]
	if m.Name != "skin" || m.TextureIndex != 1 || m.SurfaceCount != 9 {
		t.Errorf("material = %+v", m)
	}
	if m.Diffuse != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("diffuse = %v", m.Diffuse)
	}
	// sphere is unbound so the mode stays None
	if m.SphereMode != SphereNone {
		t.Errorf("sphere mode = %v", m.SphereMode)
	}
	if e.Mappings()[0].MaterialName != "skin" {
		t.Errorf("mapping name = %q", e.Mappings()[0].MaterialName)
	}

	op := e.History().Entries()[0].Operation
	var fields []string
	for _, c := range op.Changes {
		fields = append(fields, c.Field)
	}
	if want := []string{"name", "diffuse", "texture_index", "surface_count"}; !reflect.DeepEqual(fields, want) {
		t.Errorf("changed fields = %v, want %v", fields, want)
	}
	if op.Changes[0].Old != "m0" || op.Changes[0].New != "skin" {
		t.Errorf("name change = %+v", op.Changes[0])
	}
}

func TestEditor_UpdateMaterialKeepsUntouchedSphereMode(t *testing.T) {
	f := defaultFixture()
	f.materials[1].mode = uint8(SphereMultiply) // unbound sphere with a stored mode
	data := f.bytes()
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	e := NewEditor(doc)

	name := "hair2"
	if err := e.UpdateMaterial(1, MaterialPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateMaterial() error: %v", err)
	}
	m := e.Materials()[1]
	if m.SphereTextureIndex != -1 || m.SphereMode != SphereMultiply {
		t.Errorf("sphere = %d/%s, want -1/Multiply", m.SphereTextureIndex, m.SphereMode)
	}
	var fields []string
	for _, c := range e.History().Entries()[0].Operation.Changes {
		fields = append(fields, c.Field)
	}
	if want := []string{"name"}; !reflect.DeepEqual(fields, want) {
		t.Errorf("changed fields = %v, want %v", fields, want)
	}

	// renaming back must reproduce the input bytes
	same := "hair"
	if err := e.UpdateMaterial(1, MaterialPatch{Name: &same}); err != nil {
		t.Fatalf("UpdateMaterial() error: %v", err)
	}
	out, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("serialized model differs from input after name-only edits")
	}

	// a patch touching the sphere slot still normalizes the mode
	unbind := -1
	if err := e.UpdateMaterial(1, MaterialPatch{SphereTextureIndex: &unbind}); err != nil {
		t.Fatalf("UpdateMaterial() error: %v", err)
	}
	if got := e.Materials()[1].SphereMode; got != SphereNone {
		t.Errorf("sphere mode after sphere patch = %s, want None", got)
	}
}

func TestEditor_UpdateMaterialRejects(t *testing.T) {
	bad := int32(4)
	negative := int32(-3)
	tex := 5
	shared := SharedToon(12)
	kind := ToonBinding{Kind: ToonKind(9)}
	mode := SphereMode(4)
	name := "changed"

	tests := []struct {
		name    string
		patch   MaterialPatch
		wantErr error
	}{
		{"empty", MaterialPatch{}, ErrValidation},
		{"short diffuse", MaterialPatch{Name: &name, Diffuse: []float32{1, 1, 1}}, ErrValidation},
		{"long specular", MaterialPatch{Specular: []float32{1, 1, 1, 1}}, ErrValidation},
		{"short edge color", MaterialPatch{EdgeColor: []float32{0}}, ErrValidation},
		{"surface count not triangles", MaterialPatch{SurfaceCount: &bad}, ErrValidation},
		{"negative surface count", MaterialPatch{SurfaceCount: &negative}, ErrValidation},
		{"texture past end", MaterialPatch{Name: &name, TextureIndex: &tex}, ErrIndexOutOfRange},
		{"sphere past end", MaterialPatch{SphereTextureIndex: &tex}, ErrIndexOutOfRange},
		{"shared toon past palette", MaterialPatch{Toon: &shared}, ErrIndexOutOfRange},
		{"unknown toon kind", MaterialPatch{Toon: &kind}, ErrValidation},
		{"unknown sphere mode", MaterialPatch{SphereMode: &mode}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t, []string{"a.png"}, []Material{unbound("m0")})
			err := e.UpdateMaterial(0, tt.patch)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := e.Materials()[0]; !reflect.DeepEqual(got, unbound("m0")) {
				t.Errorf("material changed: %+v", got)
			}
		})
	}
}

func TestEditor_UndoRedo(t *testing.T) {
	m := unbound("m0")
	m.TextureIndex = 1
	e := newTestEditor(t, []string{"a.png", "b.png"}, []Material{m})
	initial := e.Document().Clone()
	initialMappings := e.Mappings()

	if _, err := e.AddTexture("c.png"); err != nil {
		t.Fatal(err)
	}
	if err := e.SetMaterialSphereTexture(0, 2, SphereAdd); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteTexture(0); err != nil {
		t.Fatal(err)
	}
	final := e.Document().Clone()
	finalMappings := e.Mappings()

	for i := 0; i < 3; i++ {
		if _, err := e.Undo(); err != nil {
			t.Fatalf("Undo %d error: %v", i, err)
		}
	}
	if !reflect.DeepEqual(e.Document(), initial) {
		t.Error("undo did not restore the initial document")
	}
	if !reflect.DeepEqual(e.Mappings(), initialMappings) {
		t.Error("undo did not restore the initial mappings")
	}
	if _, err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := e.Redo(); err != nil {
			t.Fatalf("Redo %d error: %v", i, err)
		}
	}
	if !reflect.DeepEqual(e.Document(), final) {
		t.Error("redo did not restore the final document")
	}
	if !reflect.DeepEqual(e.Mappings(), finalMappings) {
		t.Error("redo did not restore the final mappings")
	}
	if _, err := e.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestEditor_EditAfterUndoDropsRedo(t *testing.T) {
	e := newTestEditor(t, nil, nil)
	for _, p := range []string{"a.png", "b.png", "c.png"} {
		if _, err := e.AddTexture(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddTexture("d.png"); err != nil {
		t.Fatal(err)
	}

	if e.History().Len() != 2 || e.History().CanRedo() {
		t.Errorf("history len = %d, can redo = %v", e.History().Len(), e.History().CanRedo())
	}
	if got := texturePaths(e); !reflect.DeepEqual(got, []string{"a.png", "d.png"}) {
		t.Errorf("textures = %v", got)
	}
}

func TestEditor_HistoryCap(t *testing.T) {
	e := newTestEditor(t, []string{"a.png"}, []Material{unbound("m0")})

	for i := 0; i < 120; i++ {
		if err := e.SetMaterialMainTexture(0, i%2-1); err != nil {
			t.Fatal(err)
		}
		if e.History().Len() > DefaultHistoryLimit {
			t.Fatalf("history has %d entries after %d edits", e.History().Len(), i+1)
		}
	}
	if e.History().Len() != DefaultHistoryLimit {
		t.Errorf("history len = %d, want %d", e.History().Len(), DefaultHistoryLimit)
	}

	undone := 0
	for e.History().CanUndo() {
		if _, err := e.Undo(); err != nil {
			t.Fatal(err)
		}
		undone++
	}
	if undone != DefaultHistoryLimit {
		t.Errorf("undid %d edits, want %d", undone, DefaultHistoryLimit)
	}
}

func TestEditor_HistoryOptions(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEditor(t, nil, nil, WithHistoryLimit(3), WithClock(func() time.Time { return fixed }))

	for _, p := range []string{"a", "b", "c", "d", "e"} {
		if _, err := e.AddTexture(p); err != nil {
			t.Fatal(err)
		}
	}
	entries := e.History().Entries()
	if len(entries) != 3 || e.History().Limit() != 3 {
		t.Fatalf("history len = %d, limit = %d", len(entries), e.History().Limit())
	}
	if entries[0].Operation.NewPath != "c" {
		t.Errorf("oldest entry = %q, want c", entries[0].Operation.NewPath)
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		if !entry.Timestamp.Equal(fixed) {
			t.Errorf("timestamp = %v", entry.Timestamp)
		}
		if seen[entry.ID.String()] {
			t.Errorf("duplicate entry id %s", entry.ID)
		}
		seen[entry.ID.String()] = true
	}
}

func TestEditor_CopiesAreDetached(t *testing.T) {
	m := unbound("m0")
	m.TextureIndex = 0
	e := newTestEditor(t, []string{"a.png"}, []Material{m})

	mappings := e.Mappings()
	mappings[0].MainTexture.Path = "tampered"
	textures := e.Textures()
	textures[0].Path = "tampered"
	materials := e.Materials()
	materials[0].Name = "tampered"

	if e.Mappings()[0].MainTexture.Path != "a.png" {
		t.Error("mapping copy shares memory with the editor")
	}
	if e.Textures()[0].Path != "a.png" || e.Materials()[0].Name != "m0" {
		t.Error("table copy shares memory with the editor")
	}
}

func TestEditor_FindTexture(t *testing.T) {
	doc := defaultFixture().mustParse()
	e := NewEditor(doc)

	tests := []struct {
		path string
		want int
	}{
		{"a.png", 0},
		{"A.PNG", 0},
		{"sph/env.spa", 2},
		{"./toon/Custom.bmp", 3},
		{"missing.png", -1},
	}
	for _, tt := range tests {
		if got := e.FindTexture(tt.path); got != tt.want {
			t.Errorf("FindTexture(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}

	if got := e.TextureReferences(1); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("TextureReferences(1) = %v", got)
	}
	if got := e.TextureReferences(3); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("TextureReferences(3) = %v", got)
	}
}

func TestEditor_NilDocument(t *testing.T) {
	e := NewEditor(nil)
	if e.Document() == nil || len(e.Materials()) != 0 {
		t.Fatal("expected empty document")
	}
	if _, err := e.Material(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := e.Mapping(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := e.Serialize(); err != nil {
		t.Errorf("Serialize() error: %v", err)
	}
}

func TestEditor_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := newTestEditor(t, []string{"a.png"}, []Material{unbound("m0")}, WithLogger(zap.New(core)))

	if _, err := e.AddTexture("b.png"); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteTexture(9); err == nil {
		t.Fatal("expected error")
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}

	applied := logs.FilterMessage("edit applied").All()
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied entry, got %d", len(applied))
	}
	if op := applied[0].ContextMap()["op"]; op != string(OpAddTexture) {
		t.Errorf("op field = %v", op)
	}
	if n := logs.FilterMessage("edit rejected").Len(); n != 1 {
		t.Errorf("expected 1 rejected entry, got %d", n)
	}
	if n := logs.FilterMessage("edit undone").Len(); n != 1 {
		t.Errorf("expected 1 undone entry, got %d", n)
	}
}
