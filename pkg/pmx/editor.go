package pmx

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qxdqhr/sa2kit-sub004/pkg/encoding"
)

// DefaultSphereMode is the blend mode used when a caller binds a sphere
// texture without choosing one.
const DefaultSphereMode = SphereMultiply

// Editor mutates the texture bindings of one document.
//
// An Editor owns its document: callers must not modify the document
// directly while the editor is in use, and must serialize calls to the
// editor themselves. Every successful operation regenerates the mapping
// table; a failed operation leaves document, mappings and history untouched.
type Editor struct {
	doc      *Document
	mappings []MaterialTextureMapping
	history  *History
	log      *zap.Logger
	now      func() time.Time
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithLogger sets the logger used for edit tracing.
func WithLogger(l *zap.Logger) EditorOption {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithHistoryLimit caps the edit history at n entries.
func WithHistoryLimit(n int) EditorOption {
	return func(e *Editor) {
		e.history = NewHistory(n)
	}
}

// WithClock sets the time source for history timestamps.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEditor takes ownership of doc. A nil doc starts a blank UTF-16LE
// document. Texture and material indices are renumbered to their positions.
func NewEditor(doc *Document, opts ...EditorOption) *Editor {
	if doc == nil {
		doc = NewDocument(encoding.UTF16LE)
	}
	e := &Editor{
		doc:     doc,
		history: NewHistory(DefaultHistoryLimit),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	reindexTextures(e.doc.Textures)
	for i := range e.doc.Materials {
		e.doc.Materials[i].Index = i
	}
	e.mappings = RegenerateMappings(e.doc.Textures, e.doc.Materials)
	return e
}

// Document returns the edited document, e.g. for Serialize.
func (e *Editor) Document() *Document { return e.doc }

// History returns the edit log.
func (e *Editor) History() *History { return e.history }

// Textures returns a copy of the texture table.
func (e *Editor) Textures() []Texture { return cloneTextures(e.doc.Textures) }

// Materials returns a copy of the material table.
func (e *Editor) Materials() []Material { return cloneMaterials(e.doc.Materials) }

// Material returns a copy of material i.
func (e *Editor) Material(i int) (Material, error) {
	if err := e.checkMaterial("material", i); err != nil {
		return Material{}, err
	}
	return e.doc.Materials[i], nil
}

// Mappings returns a copy of the current mapping table.
func (e *Editor) Mappings() []MaterialTextureMapping {
	return cloneMappings(e.mappings)
}

// Mapping returns a copy of the mapping of material i.
func (e *Editor) Mapping(i int) (MaterialTextureMapping, error) {
	if err := e.checkMaterial("mapping", i); err != nil {
		return MaterialTextureMapping{}, err
	}
	return cloneMappings(e.mappings[i : i+1])[0], nil
}

// Serialize encodes the current document.
func (e *Editor) Serialize() ([]byte, error) {
	return Serialize(e.doc)
}

// FindTexture returns the index of the texture whose path matches path
// ignoring case and separator style, or -1.
func (e *Editor) FindTexture(path string) int {
	want := encoding.NormalizeTexturePath(path)
	for i, t := range e.doc.Textures {
		if encoding.NormalizeTexturePath(t.Path) == want {
			return i
		}
	}
	return -1
}

// TextureReferences returns the indices of materials referencing texture
// index through any of their three slots.
func (e *Editor) TextureReferences(index int) []int {
	var refs []int
	for i, m := range e.doc.Materials {
		if m.TextureIndex == index || m.SphereTextureIndex == index || m.Toon.TextureIndex() == index {
			refs = append(refs, i)
		}
	}
	return refs
}

// AddTexture appends a texture and returns its index.
func (e *Editor) AddTexture(path string) (int, error) {
	const op = OpAddTexture
	if strings.TrimSpace(path) == "" {
		return -1, e.reject(invalidf(op, "empty texture path"))
	}
	index := len(e.doc.Textures)
	width := e.doc.Header.Globals.TextureIndexSize
	if !width.Fits(index) {
		return -1, e.reject(invalidf(op, "texture table is full for %d-byte indices", width))
	}

	before := captureState(e.doc, true, false)
	e.doc.Textures = append(e.doc.Textures, Texture{Index: index, Path: path})

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: -1,
		TextureIndex:  index,
		NewPath:       path,
	}, "add texture: "+path, before, captureState(e.doc, true, false))
	return index, nil
}

// UpdateTexture replaces the path of texture index.
func (e *Editor) UpdateTexture(index int, newPath string) error {
	const op = OpUpdateTexture
	if err := e.checkTexture(op, index); err != nil {
		return e.reject(err)
	}
	if strings.TrimSpace(newPath) == "" {
		return e.reject(invalidf(op, "empty texture path"))
	}

	before := captureState(e.doc, true, false)
	oldPath := e.doc.Textures[index].Path
	e.doc.Textures[index].Path = newPath

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: -1,
		TextureIndex:  index,
		OldPath:       oldPath,
		NewPath:       newPath,
	}, fmt.Sprintf("update texture %d: %s -> %s", index, oldPath, newPath), before, captureState(e.doc, true, false))
	return nil
}

// DeleteTexture removes texture index. It fails without changing anything
// while any material references the texture. Remaining textures and every
// material reference above index shift down by one; shared toon palette
// ids are not texture indices and are left alone.
func (e *Editor) DeleteTexture(index int) error {
	const op = OpDeleteTexture
	if err := e.checkTexture(op, index); err != nil {
		return e.reject(err)
	}
	if refs := len(e.TextureReferences(index)); refs > 0 {
		return e.reject(referencedError(op, index, refs))
	}

	before := captureState(e.doc, true, true)
	path := e.doc.Textures[index].Path

	textures := make([]Texture, 0, len(e.doc.Textures)-1)
	textures = append(textures, e.doc.Textures[:index]...)
	textures = append(textures, e.doc.Textures[index+1:]...)
	reindexTextures(textures)
	e.doc.Textures = textures

	shift := func(ref int) int {
		if ref > index {
			return ref - 1
		}
		return ref
	}
	for i := range e.doc.Materials {
		m := &e.doc.Materials[i]
		m.TextureIndex = shift(m.TextureIndex)
		m.SphereTextureIndex = shift(m.SphereTextureIndex)
		if m.Toon.Kind == ToonIndexed {
			m.Toon.Value = shift(m.Toon.Value)
		}
	}

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: -1,
		TextureIndex:  index,
		OldPath:       path,
	}, "delete texture: "+path, before, captureState(e.doc, true, true))
	return nil
}

// SetMaterialMainTexture binds texture textureIndex (or -1 for none) to the
// main slot of material materialIndex.
func (e *Editor) SetMaterialMainTexture(materialIndex, textureIndex int) error {
	const op = OpSetMainTexture
	if err := e.checkMaterial(op, materialIndex); err != nil {
		return e.reject(err)
	}
	if err := e.checkTextureRef(op, textureIndex); err != nil {
		return e.reject(err)
	}

	before := captureState(e.doc, false, true)
	m := &e.doc.Materials[materialIndex]
	old := m.TextureIndex
	m.TextureIndex = textureIndex

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: materialIndex,
		TextureIndex:  textureIndex,
		OldValue:      old,
		NewValue:      textureIndex,
	}, fmt.Sprintf("set main texture of material %d (%s): %d -> %d", materialIndex, m.Name, old, textureIndex),
		before, captureState(e.doc, false, true))
	return nil
}

// SetMaterialSphereTexture binds a sphere texture with the given blend mode.
// Binding -1 always stores SphereNone regardless of mode.
func (e *Editor) SetMaterialSphereTexture(materialIndex, textureIndex int, mode SphereMode) error {
	const op = OpSetSphereTexture
	if err := e.checkMaterial(op, materialIndex); err != nil {
		return e.reject(err)
	}
	if err := e.checkTextureRef(op, textureIndex); err != nil {
		return e.reject(err)
	}
	if !mode.Valid() {
		return e.reject(invalidf(op, "sphere mode %d", uint8(mode)))
	}
	if textureIndex == -1 {
		mode = SphereNone
	}

	before := captureState(e.doc, false, true)
	m := &e.doc.Materials[materialIndex]
	oldIndex, oldMode := m.SphereTextureIndex, m.SphereMode
	m.SphereTextureIndex = textureIndex
	m.SphereMode = mode

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: materialIndex,
		TextureIndex:  textureIndex,
		OldValue:      oldIndex,
		NewValue:      textureIndex,
		Changes: []FieldChange{
			{Field: "sphere_texture_index", Old: oldIndex, New: textureIndex},
			{Field: "sphere_mode", Old: oldMode, New: mode},
		},
	}, fmt.Sprintf("set sphere texture of material %d (%s): %d/%s -> %d/%s",
		materialIndex, m.Name, oldIndex, oldMode, textureIndex, mode),
		before, captureState(e.doc, false, true))
	return nil
}

// SetMaterialToonTexture binds the toon slot. When isShared, textureIndex is
// a shared palette id (0-9) and is not checked against the texture table;
// otherwise it must be a texture index or -1.
func (e *Editor) SetMaterialToonTexture(materialIndex, textureIndex int, isShared bool) error {
	const op = OpSetToonTexture
	if err := e.checkMaterial(op, materialIndex); err != nil {
		return e.reject(err)
	}

	var binding ToonBinding
	if isShared {
		if textureIndex < 0 || textureIndex >= SharedToonCount {
			return e.reject(outOfRangef(op, "shared toon id %d outside palette [0, %d)", textureIndex, SharedToonCount))
		}
		binding = SharedToon(textureIndex)
	} else {
		if err := e.checkTextureRef(op, textureIndex); err != nil {
			return e.reject(err)
		}
		binding = IndexedToon(textureIndex)
	}

	before := captureState(e.doc, false, true)
	m := &e.doc.Materials[materialIndex]
	old := m.Toon
	m.Toon = binding

	e.commit(Operation{
		Kind:          op,
		MaterialIndex: materialIndex,
		TextureIndex:  binding.TextureIndex(),
		OldValue:      old,
		NewValue:      binding,
	}, fmt.Sprintf("set toon texture of material %d (%s): %s -> %s", materialIndex, m.Name, old, binding),
		before, captureState(e.doc, false, true))
	return nil
}

// UpdateMaterial merges the provided fields of patch into material
// materialIndex. All fields are validated before any is applied.
func (e *Editor) UpdateMaterial(materialIndex int, patch MaterialPatch) error {
	const op = OpUpdateMaterial
	if err := e.checkMaterial(op, materialIndex); err != nil {
		return e.reject(err)
	}
	if patch.IsEmpty() {
		return e.reject(invalidf(op, "no fields to update"))
	}

	old := e.doc.Materials[materialIndex]
	updated, err := patch.apply(old, len(e.doc.Textures))
	if err != nil {
		return e.reject(err)
	}
	changes := diffMaterials(old, updated)

	before := captureState(e.doc, false, true)
	e.doc.Materials[materialIndex] = updated

	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	e.commit(Operation{
		Kind:          op,
		MaterialIndex: materialIndex,
		TextureIndex:  -1,
		Changes:       changes,
	}, fmt.Sprintf("update material %d (%s): %s", materialIndex, old.Name, strings.Join(fields, ", ")),
		before, captureState(e.doc, false, true))
	return nil
}

// Undo reverts the most recent applied edit and returns its entry.
func (e *Editor) Undo() (HistoryEntry, error) {
	entry, ok := e.history.undo()
	if !ok {
		return HistoryEntry{}, ErrNothingToUndo
	}
	entry.before.restore(e.doc)
	e.mappings = RegenerateMappings(e.doc.Textures, e.doc.Materials)
	e.log.Debug("edit undone", zap.String("op", string(entry.Operation.Kind)), zap.String("description", entry.Description))
	return entry, nil
}

// Redo re-applies the most recently undone edit and returns its entry.
func (e *Editor) Redo() (HistoryEntry, error) {
	entry, ok := e.history.redo()
	if !ok {
		return HistoryEntry{}, ErrNothingToRedo
	}
	entry.after.restore(e.doc)
	e.mappings = RegenerateMappings(e.doc.Textures, e.doc.Materials)
	e.log.Debug("edit redone", zap.String("op", string(entry.Operation.Kind)), zap.String("description", entry.Description))
	return entry, nil
}

func (e *Editor) commit(op Operation, description string, before, after tableState) {
	e.mappings = RegenerateMappings(e.doc.Textures, e.doc.Materials)
	e.history.push(HistoryEntry{
		ID:          uuid.New(),
		Operation:   op,
		Timestamp:   e.now(),
		Description: description,
		before:      before,
		after:       after,
	})
	e.log.Debug("edit applied",
		zap.String("op", string(op.Kind)),
		zap.String("description", description),
		zap.Int("textures", len(e.doc.Textures)),
		zap.Int("history", e.history.Len()))
}

func (e *Editor) reject(err error) error {
	e.log.Debug("edit rejected", zap.Error(err))
	return err
}

func (e *Editor) checkMaterial(op OpKind, i int) error {
	if i < 0 || i >= len(e.doc.Materials) {
		return outOfRangef(op, "material %d not in [0, %d)", i, len(e.doc.Materials))
	}
	return nil
}

func (e *Editor) checkTexture(op OpKind, i int) error {
	if i < 0 || i >= len(e.doc.Textures) {
		return outOfRangef(op, "texture %d not in [0, %d)", i, len(e.doc.Textures))
	}
	return nil
}

// checkTextureRef accepts -1 in addition to valid texture indices.
func (e *Editor) checkTextureRef(op OpKind, i int) error {
	if i == -1 {
		return nil
	}
	return e.checkTexture(op, i)
}

func reindexTextures(textures []Texture) {
	for i := range textures {
		textures[i].Index = i
	}
}
