package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
)

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}

func doubleValue(f float64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
}

// encodePayload maps a domain payload onto Qdrant's value tree. Statistics
// nest as a struct, image URLs as a list; optional fields are omitted when
// empty so old and new points stay shape-compatible.
func encodePayload(p domain.Payload) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"original_log":      stringValue(p.OriginalLog),
		"weather":           stringValue(p.Weather),
		"resolution_action": stringValue(p.ResolutionAction),
		"resolution_detail": stringValue(p.ResolutionDetail),
		"statistics": {Kind: &pb.Value_StructValue{StructValue: &pb.Struct{
			Fields: map[string]*pb.Value{
				"avg_delay_mins": intValue(p.Statistics.AvgDelayMins),
				"times_used":     intValue(p.Statistics.TimesUsed),
			},
		}}},
	}
	if len(p.ImageURLs) > 0 {
		urls := make([]*pb.Value, len(p.ImageURLs))
		for i, u := range p.ImageURLs {
			urls[i] = stringValue(u)
		}
		payload["image_urls"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: urls}}}
	}
	if p.Source != "" {
		payload["source"] = stringValue(p.Source)
	}
	if p.DamageAmount != 0 {
		payload["damage_amount"] = doubleValue(p.DamageAmount)
	}
	if p.Location != "" {
		payload["location"] = stringValue(p.Location)
	}
	if p.ReportID != "" {
		payload["report_id"] = stringValue(p.ReportID)
	}
	return payload
}

// decodePayload is the inverse of encodePayload. Unknown keys are ignored,
// missing keys decode to zero values.
func decodePayload(values map[string]*pb.Value) domain.Payload {
	var p domain.Payload
	for k, v := range values {
		switch k {
		case "original_log":
			p.OriginalLog = v.GetStringValue()
		case "weather":
			p.Weather = v.GetStringValue()
		case "resolution_action":
			p.ResolutionAction = v.GetStringValue()
		case "resolution_detail":
			p.ResolutionDetail = v.GetStringValue()
		case "statistics":
			fields := v.GetStructValue().GetFields()
			p.Statistics = domain.Statistics{
				AvgDelayMins: int(fields["avg_delay_mins"].GetIntegerValue()),
				TimesUsed:    int(fields["times_used"].GetIntegerValue()),
			}
		case "image_urls":
			for _, u := range v.GetListValue().GetValues() {
				p.ImageURLs = append(p.ImageURLs, u.GetStringValue())
			}
		case "source":
			p.Source = v.GetStringValue()
		case "damage_amount":
			p.DamageAmount = v.GetDoubleValue()
		case "location":
			p.Location = v.GetStringValue()
		case "report_id":
			p.ReportID = v.GetStringValue()
		}
	}
	return p
}
