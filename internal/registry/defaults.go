package registry

// Stock component ids.
const (
	Abstract               ComponentID = "AbstractComponent"
	AdditionalDates        ComponentID = "AdditionalDatesComponent"
	AdditionalDescriptions ComponentID = "AdditionalDescriptionComponent"
	AdditionalTitles       ComponentID = "AdditionalTitlesComponent"
	AlternateIdentifiers   ComponentID = "AlternateIdentifiersComponent"
	BookTitle              ComponentID = "BookTitleComponent"
	Communities            ComponentID = "CommunitiesComponent"
	Contributors           ComponentID = "ContributorsComponent"
	Creators               ComponentID = "CreatorsComponent"
	Date                   ComponentID = "DateComponent"
	Doi                    ComponentID = "DoiComponent"
	Funding                ComponentID = "FundingComponent"
	ISBN                   ComponentID = "ISBNComponent"
	FilesUpload            ComponentID = "FilesUploadComponent"
	Languages              ComponentID = "LanguagesComponent"
	Licenses               ComponentID = "LicensesComponent"
	MetadataOnly           ComponentID = "MetadataOnlyComponent"
	Publisher              ComponentID = "PublisherComponent"
	PublicationLocation    ComponentID = "PublicationLocationComponent"
	RelatedWorks           ComponentID = "RelatedWorksComponent"
	Series                 ComponentID = "SeriesComponent"
	ResourceType           ComponentID = "ResourceTypeComponent"
	Subjects               ComponentID = "SubjectsComponent"
	Subtitle               ComponentID = "SubtitleComponent"
	Title                  ComponentID = "TitleComponent"
	TotalPages             ComponentID = "TotalPagesComponent"
	Version                ComponentID = "VersionComponent"
	AI                     ComponentID = "AIComponent"

	// composites
	Access                ComponentID = "AccessComponent"
	AccessRights          ComponentID = "AccessRightsComponent"
	BookDetail            ComponentID = "BookDetailComponent"
	BookSectionDetail     ComponentID = "BookSectionDetailComponent"
	CombinedTitles        ComponentID = "CombinedTitlesComponent"
	CombinedDates         ComponentID = "CombinedDatesComponent"
	Delete                ComponentID = "DeleteComponent"
	SectionPages          ComponentID = "SectionPagesComponent"
	JournalDetail         ComponentID = "JournalDetailComponent"
	OrganizationDetails   ComponentID = "OrganizationDetailsComponent"
	PublicationDetails    ComponentID = "PublicationDetailsComponent"
	Submission            ComponentID = "SubmissionComponent"
	SubmitActions         ComponentID = "SubmitActionsComponent"
	ThesisDetails         ComponentID = "ThesisDetailsComponent"
	TypeTitle             ComponentID = "TypeTitleComponent"
	ImprintPlaceComponent ComponentID = "ImprintPlaceComponent"
)

// DefaultEntries returns the stock deposit form components.
func DefaultEntries() []Entry {
	imprint := func(f string) string { return "custom_fields.imprint:imprint." + f }
	journal := func(f string) string { return "custom_fields.journal:journal." + f }

	return []Entry{
		{Abstract, CapTextArea, []string{"metadata.description"}},
		{AdditionalDates, CapList, []string{"metadata.dates"}},
		{AdditionalDescriptions, CapList, []string{"metadata.additional_descriptions"}},
		{AdditionalTitles, CapList, []string{"metadata.additional_titles"}},
		{AlternateIdentifiers, CapList, []string{"metadata.identifiers"}},
		{BookTitle, CapText, []string{imprint("title")}},
		{Communities, CapCommunity, nil},
		{Contributors, CapList, []string{"metadata.contributors"}},
		{Creators, CapList, []string{"metadata.creators"}},
		{Date, CapDate, []string{"metadata.publication_date"}},
		{Doi, CapText, []string{"pids.doi"}},
		{Funding, CapList, []string{"metadata.funding"}},
		{ISBN, CapText, []string{imprint("isbn")}},
		{FilesUpload, CapFiles, []string{"files"}},
		{Languages, CapMultiSelect, []string{"metadata.languages"}},
		{Licenses, CapList, []string{"metadata.rights"}},
		{MetadataOnly, CapAccess, []string{"access.status"}},
		{Publisher, CapText, []string{"metadata.publisher"}},
		{PublicationLocation, CapText, []string{imprint("place")}},
		{RelatedWorks, CapList, []string{"metadata.related_identifiers"}},
		{Series, CapText, []string{"custom_fields.kcr:book_series"}},
		{ResourceType, CapSelect, []string{"metadata.resource_type"}},
		{Subjects, CapMultiSelect, []string{"metadata.subjects"}},
		{Subtitle, CapText, []string{"metadata.additional_titles"}},
		{Title, CapText, []string{"metadata.title"}},
		{TotalPages, CapText, []string{imprint("pages")}},
		{Version, CapText, []string{"metadata.version"}},
		{AI, CapTextArea, []string{"custom_fields.kcr:ai_usage"}},

		{Access, CapAccess, []string{"access"}},
		{AccessRights, CapAccess, []string{"access"}},
		{BookDetail, CapText, []string{imprint("isbn"), "metadata.version", "metadata.publisher", imprint("place")}},
		{BookSectionDetail, CapText, []string{imprint("title"), imprint("isbn"), "metadata.version", "metadata.publisher", imprint("place")}},
		{CombinedTitles, CapText, []string{"metadata.title", "metadata.additional_titles"}},
		{CombinedDates, CapDate, []string{"metadata.publication_date", "metadata.dates"}},
		{Delete, CapAction, nil},
		{SectionPages, CapText, []string{journal("pages")}},
		{JournalDetail, CapText, []string{journal("issn"), journal("title"), journal("volume"), journal("issue"), journal("pages")}},
		{OrganizationDetails, CapText, []string{imprint("place")}},
		{PublicationDetails, CapText, []string{imprint("isbn"), "metadata.version", "metadata.publisher", imprint("place")}},
		{Submission, CapAction, nil},
		{SubmitActions, CapAction, []string{"access"}},
		{ThesisDetails, CapText, []string{"custom_fields.thesis:university"}},
		{TypeTitle, CapText, []string{"metadata.title", "metadata.resource_type"}},
		{ImprintPlaceComponent, CapText, []string{imprint("place")}},
	}
}

// Default returns a registry holding DefaultEntries.
func Default() *Registry {
	return MustNew(DefaultEntries()...)
}
