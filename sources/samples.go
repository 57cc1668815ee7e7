package sources

import "tess-backend/models"

// SampleDocuments is the built-in demo catalog
var SampleDocuments = []models.SourceDocument{
	{
		Kind:  models.KindLegislation,
		Title: "Wet op de vennootschapsbelasting 1969, artikel 13",
		Content: "De deelnemingsvrijstelling is een belangrijke fiscale regeling in de Nederlandse vennootschapsbelasting.\n" +
			"Kort gezegd betekent het dat een bedrijf (bijvoorbeeld een BV of NV) geen belasting hoeft te betalen over winst " +
			"(dividenden of verkoopwinsten) die het ontvangt uit een kwalificerende deelneming. Zo wordt dubbele belasting voorkomen: " +
			"de winst is namelijk al belast bij de dochtermaatschappij die de winst maakte.\n" +
			"Voorwaarden deelnemingsvrijstelling\n" +
			"De deelnemingsvrijstelling geldt meestal als:\n" +
			"Aandeelhouderschap: de moedermaatschappij minimaal 5% van de aandelen bezit in de dochtermaatschappij.\n",
	},
	{
		Kind:    models.KindLegislation,
		Title:   "Wet op de omzetbelasting 1968, artikel 2",
		Content: "Het btw-tarief op goederen is 21%",
	},
	{
		Kind:    models.KindCaseLaw,
		Title:   "ECLI:NL:HR:2020:123",
		Content: "Geschil over btw-classificatie en tarieftoepassing. Het btw tarief op tandpasta is 0%",
	},
	{
		Kind:    models.KindCaseLaw,
		Title:   "ECLI:NL:RBAMS:2021:456",
		Content: "Deelnemingsvrijstelling vereist een zakelijk motief.",
	},
}

// DefaultCatalog returns a catalog seeded with SampleDocuments
func DefaultCatalog() *Catalog {
	return NewCatalog(SampleDocuments)
}
