package analysis

import (
	"contract-insight/types"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// 提示词里的 JSON Schema 从 types.ContractAnalysis 反射生成，免费版去掉 premium 字段
var (
	freeSchema    = mustSchemaText(types.TierFree)
	premiumSchema = mustSchemaText(types.TierPremium)
)

func schemaFor(tier types.Tier) *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	s := r.Reflect(&types.ContractAnalysis{})
	s.Version = ""
	s.ID = ""
	if tier.IsPremium() {
		return s
	}

	for _, key := range types.PremiumFields {
		s.Properties.Delete(key)
	}
	dropItemProperty(s, "risks", "severity")
	dropItemProperty(s, "opportunities", "impact")
	return s
}

func dropItemProperty(s *jsonschema.Schema, array, prop string) {
	arr, ok := s.Properties.Get(array)
	if !ok || arr == nil || arr.Items == nil || arr.Items.Properties == nil {
		return
	}
	arr.Items.Properties.Delete(prop)
}

func mustSchemaText(tier types.Tier) string {
	b, err := json.MarshalIndent(schemaFor(tier), "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}
