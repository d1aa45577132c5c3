package schema

// Defaults returns the built-in canonical schema used whenever no
// persisted configuration exists or the persisted file is unreadable.
// The alias vocabulary covers both Chinese and English order documents.
func Defaults() *Registry {
	return NewRegistry([]CanonicalField{
		{
			Name:     FieldItemID,
			Aliases:  []string{"产品ID", "产品id", "商品编号", "货号", "item id", "itemid", "id"},
			Required: true,
		},
		{
			Name:     FieldProductName,
			Aliases:  []string{"产品名称", "商品名称", "品名", "product name", "name", "产品"},
			Required: true,
		},
		{
			Name:     FieldUnitPrice,
			Aliases:  []string{"标准单价", "单价", "价格", "unit price", "price", "standard price"},
			Required: true,
		},
		{
			Name:     FieldSize,
			Aliases:  []string{"尺寸", "规格", "大小", "size", "specification"},
			Required: false,
		},
		{
			Name:     FieldColor,
			Aliases:  []string{"颜色", "色彩", "color", "colour"},
			Required: false,
		},
	})
}
