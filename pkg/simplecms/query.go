package simplecms

import "strconv"

// BuildQuery translates a page request into the bounded listing query and
// the unbounded count query for one entity. Filter fields the descriptor
// does not know are dropped rather than rejected. The function never
// touches storage.
func BuildQuery(desc *EntityDescriptor, req PageRequest) (Query, CountQuery) {
	filters := buildFilters(desc, req.Filters)
	search := req.Search
	searchFields := desc.searchableFields()
	if len(searchFields) == 0 {
		search = ""
	}

	q := Query{
		Filters:      filters,
		Search:       search,
		SearchFields: searchFields,
		SortField:    desc.SortFieldOrDefault(req.SortBy),
		SortDesc:     req.SortDesc(),
		Skip:         req.Skip(),
		Take:         req.PageSize,
	}
	c := CountQuery{
		Filters:      filters,
		Search:       search,
		SearchFields: searchFields,
	}
	return q, c
}

func buildFilters(desc *EntityDescriptor, raw map[string]string) []Filter {
	var filters []Filter
	for _, f := range desc.Fields {
		val, ok := raw[f.Name]
		if !ok {
			continue
		}
		filters = append(filters, buildFilter(f, val))
	}
	return filters
}

func buildFilter(f FieldDescriptor, val string) Filter {
	switch {
	case f.Kind == FieldRelationKey:
		// Relation keys are integer ids; a non-numeric value is kept as
		// given and will simply match nothing.
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return Filter{Field: f.Name, Op: FilterEquals, Value: n}
		}
		return Filter{Field: f.Name, Op: FilterEquals, Value: val}
	case f.Type == FieldTypeText:
		return Filter{Field: f.Name, Op: FilterContains, Value: val}
	case f.Type == FieldTypeInt:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return Filter{Field: f.Name, Op: FilterEquals, Value: n}
		}
		return Filter{Field: f.Name, Op: FilterEquals, Value: val}
	case f.Type == FieldTypeBool:
		if b, err := strconv.ParseBool(val); err == nil {
			return Filter{Field: f.Name, Op: FilterEquals, Value: b}
		}
		return Filter{Field: f.Name, Op: FilterEquals, Value: val}
	default:
		return Filter{Field: f.Name, Op: FilterEquals, Value: val}
	}
}
