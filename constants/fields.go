package constants

// Field is a canonical output column every header synonym resolves to.
type Field string

// Stable values (these exact strings appear in model output and exports).
const (
	FieldMaterialCode Field = "Malzeme_Kodu"
	FieldShortCode    Field = "Kisa_Kod"
	FieldDescription  Field = "Açıklama"
	FieldPrice        Field = "Fiyat"
	FieldCurrency     Field = "Para_Birimi"
	FieldBrand        Field = "Marka"
	FieldSourceFile   Field = "Kaynak_Dosya"
	FieldPage         Field = "Sayfa"
	FieldRecordCode   Field = "Record_Code"
	FieldMainHeading  Field = "Ana_Baslik"
	FieldSubHeading   Field = "Alt_Baslik"
	FieldSubHeading2  Field = "Alt_Baslik2"
	FieldImagePath    Field = "Image_Path"
)

// ExtractionFields is the column order used for model output and the
// spreadsheet mirror.
var ExtractionFields = []Field{
	FieldMaterialCode,
	FieldShortCode,
	FieldDescription,
	FieldPrice,
	FieldCurrency,
	FieldBrand,
	FieldSourceFile,
	FieldPage,
	FieldRecordCode,
	FieldMainHeading,
	FieldSubHeading,
	FieldSubHeading2,
	FieldImagePath,
}

// DefaultCurrency is applied when neither the page nor the brand profile
// yields a currency.
const DefaultCurrency = "₺"
