package assets

// SkinVariant maps each texture slot of a skin family to an index into
// PartialModel.TextureNames.
type SkinVariant []uint16

// CompactSkins builds one SkinVariant per family from table[reference][family],
// dropping trailing reference rows that neither differ across families nor
// introduce a texture index unseen in earlier rows. Each row should hold
// families entries; a short row reads its missing entries as index 0.
func CompactSkins(table [][]uint16, families int) []SkinVariant {
	if families <= 0 {
		return nil
	}
	skins := make([]SkinVariant, families)
	if len(table) == 0 {
		for f := range skins {
			skins[f] = SkinVariant{}
		}
		return skins
	}

	last := 0
	seen := make(map[uint16]bool, len(table))
	for r, row := range table {
		for f := 0; f < families; f++ {
			v := skinCell(row, f)
			if v != skinCell(row, 0) {
				last = r
			}
			if !seen[v] {
				last = r
				seen[v] = true
			}
		}
	}

	for f := range skins {
		skin := make(SkinVariant, last+1)
		for r := 0; r <= last; r++ {
			skin[r] = skinCell(table[r], f)
		}
		skins[f] = skin
	}
	return skins
}

func skinCell(row []uint16, f int) uint16 {
	if f < len(row) {
		return row[f]
	}
	return 0
}
