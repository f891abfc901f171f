package catalog

import (
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/gogo/protobuf/proto"
)

// CatalogState is stored under gCatalogStateKey.
type CatalogState struct {
	MajorVers  int32  `protobuf:"varint,1,opt,name=MajorVers,proto3" json:"MajorVers,omitempty"`
	MinorVers  int32  `protobuf:"varint,2,opt,name=MinorVers,proto3" json:"MinorVers,omitempty"`
	NumEntries uint64 `protobuf:"varint,3,opt,name=NumEntries,proto3" json:"NumEntries,omitempty"`
}

func (m *CatalogState) Reset()         { *m = CatalogState{} }
func (m *CatalogState) String() string { return proto.CompactTextString(m) }
func (*CatalogState) ProtoMessage()    {}

type GeneratorRecord struct {
	Q       int64   `protobuf:"zigzag64,1,opt,name=Q,proto3" json:"Q,omitempty"`
	H       int64   `protobuf:"zigzag64,2,opt,name=H,proto3" json:"H,omitempty"`
	Marked  bool    `protobuf:"varint,3,opt,name=Marked,proto3" json:"Marked,omitempty"`
	Torsion int64   `protobuf:"zigzag64,4,opt,name=Torsion,proto3" json:"Torsion,omitempty"`
	Divisor []int64 `protobuf:"zigzag64,5,rep,packed,name=Divisor,proto3" json:"Divisor,omitempty"`
}

func (m *GeneratorRecord) Reset()         { *m = GeneratorRecord{} }
func (m *GeneratorRecord) String() string { return proto.CompactTextString(m) }
func (*GeneratorRecord) ProtoMessage()    {}

type PresentedEntryRecord struct {
	Row    int64   `protobuf:"varint,1,opt,name=Row,proto3" json:"Row,omitempty"`
	Col    int64   `protobuf:"varint,2,opt,name=Col,proto3" json:"Col,omitempty"`
	Coef   int64   `protobuf:"zigzag64,3,opt,name=Coef,proto3" json:"Coef,omitempty"`
	UPower int64   `protobuf:"varint,4,opt,name=UPower,proto3" json:"UPower,omitempty"`
	Coefs  []int64 `protobuf:"zigzag64,5,rep,packed,name=Coefs,proto3" json:"Coefs,omitempty"`
}

func (m *PresentedEntryRecord) Reset()         { *m = PresentedEntryRecord{} }
func (m *PresentedEntryRecord) String() string { return proto.CompactTextString(m) }
func (*PresentedEntryRecord) ProtoMessage()    {}

type PresentedDegreeRecord struct {
	H       int64                   `protobuf:"zigzag64,1,opt,name=H,proto3" json:"H,omitempty"`
	Q       []int64                 `protobuf:"zigzag64,2,rep,packed,name=Q,proto3" json:"Q,omitempty"`
	Entries []*PresentedEntryRecord `protobuf:"bytes,3,rep,name=Entries,proto3" json:"Entries,omitempty"`
}

func (m *PresentedDegreeRecord) Reset()         { *m = PresentedDegreeRecord{} }
func (m *PresentedDegreeRecord) String() string { return proto.CompactTextString(m) }
func (*PresentedDegreeRecord) ProtoMessage()    {}

// EntryRecord is the stored form of a khoca.VariantResult.
type EntryRecord struct {
	Generators      []*GeneratorRecord       `protobuf:"bytes,1,rep,name=Generators,proto3" json:"Generators,omitempty"`
	Polynomial      string                   `protobuf:"bytes,2,opt,name=Polynomial,proto3" json:"Polynomial,omitempty"`
	HasPresentation bool                     `protobuf:"varint,3,opt,name=HasPresentation,proto3" json:"HasPresentation,omitempty"`
	Degrees         []*PresentedDegreeRecord `protobuf:"bytes,4,rep,name=Degrees,proto3" json:"Degrees,omitempty"`
}

func (m *EntryRecord) Reset()         { *m = EntryRecord{} }
func (m *EntryRecord) String() string { return proto.CompactTextString(m) }
func (*EntryRecord) ProtoMessage()    {}

func exportResult(vr *khoca.VariantResult) *EntryRecord {
	rec := &EntryRecord{
		Generators: make([]*GeneratorRecord, len(vr.Generators)),
		Polynomial: vr.Polynomial,
	}
	for i, g := range vr.Generators {
		rec.Generators[i] = &GeneratorRecord{
			Q:       int64(g.Q),
			H:       int64(g.H),
			Marked:  g.Marked,
			Torsion: g.Torsion,
			Divisor: g.Divisor,
		}
	}
	if P := vr.Presentation; P != nil {
		rec.HasPresentation = true
		rec.Degrees = make([]*PresentedDegreeRecord, len(P.Degrees))
		for i, deg := range P.Degrees {
			drec := &PresentedDegreeRecord{
				H: int64(deg.H),
				Q: make([]int64, len(deg.Q)),
			}
			for j, q := range deg.Q {
				drec.Q[j] = int64(q)
			}
			for _, e := range deg.Entries {
				drec.Entries = append(drec.Entries, &PresentedEntryRecord{
					Row:    int64(e.Row),
					Col:    int64(e.Col),
					Coef:   e.Coef,
					UPower: int64(e.UPower),
					Coefs:  e.Coefs,
				})
			}
			rec.Degrees[i] = drec
		}
	}
	return rec
}

func importResult(rec *EntryRecord, variant khoca.Variant) *khoca.VariantResult {
	vr := &khoca.VariantResult{
		Variant:    variant,
		Polynomial: rec.Polynomial,
	}
	if len(rec.Generators) > 0 {
		vr.Generators = make([]khoca.Generator, len(rec.Generators))
		for i, g := range rec.Generators {
			vr.Generators[i] = khoca.Generator{
				Q:       int(g.Q),
				H:       int(g.H),
				Marked:  g.Marked,
				Torsion: g.Torsion,
				Divisor: g.Divisor,
			}
		}
	}
	if rec.HasPresentation {
		P := &khoca.Presentation{
			Degrees: make([]khoca.PresentedDegree, len(rec.Degrees)),
		}
		for i, drec := range rec.Degrees {
			deg := &P.Degrees[i]
			deg.H = int(drec.H)
			deg.Q = make([]int, len(drec.Q))
			for j, q := range drec.Q {
				deg.Q[j] = int(q)
			}
			for _, e := range drec.Entries {
				deg.Entries = append(deg.Entries, khoca.PresentedEntry{
					Row:    int(e.Row),
					Col:    int(e.Col),
					Coef:   e.Coef,
					UPower: int(e.UPower),
					Coefs:  e.Coefs,
				})
			}
		}
		vr.Presentation = P
	}
	return vr
}
