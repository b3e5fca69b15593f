/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

// Validate checks the mandatory members of the first request and returns the
// protocol failure to report, or nil.
func (e *InquiryEnvelope) Validate(versions VersionPolicy) *ProtocolError {
	if len(e.invalidParams) > 0 {
		return InvalidParams(e.invalidParams...)
	}
	if e.Version == nil {
		return MissingParam("version")
	}
	if e.Requests == nil {
		return MissingParam("availableSpectrumInquiryRequests")
	}
	req := e.Request()
	if req == nil {
		return GeneralFailure()
	}
	if req.RequestID == nil {
		return MissingParam("requestId")
	}
	dev := req.DeviceDescriptor
	if dev == nil {
		return MissingParam("deviceDescriptor")
	}
	if dev.SerialNumber == nil {
		return MissingParam("serialNumber")
	}
	if dev.CertificationID == nil {
		return MissingParam("certificationId")
	}
	if len(dev.CertificationID) == 0 {
		return InvalidParams("certificationId")
	}
	if versions != nil && !versions.Supports(*e.Version) {
		return VersionNotSupported()
	}
	for _, c := range dev.CertificationID {
		if c.RulesetID == nil {
			return MissingParam("rulesetId")
		}
		if c.ID == nil {
			return MissingParam("id")
		}
	}
	if perr := req.Location.validate(); perr != nil {
		return perr
	}
	for _, ch := range req.InquiredChannels {
		if ch.GlobalOperatingClass == nil {
			return MissingParam("globalOperatingClass")
		}
	}
	for _, r := range req.InquiredFrequencyRange {
		if r.LowFrequency == nil {
			return MissingParam("lowFrequency")
		}
		if r.HighFrequency == nil {
			return MissingParam("highFrequency")
		}
	}
	return nil
}

// LocationShape names the geometry variant of a location.
type LocationShape int

const (
	ShapeNone LocationShape = iota
	ShapeEllipse
	ShapeLinearPolygon
	ShapeRadialPolygon
)

func (s LocationShape) String() string {
	switch s {
	case ShapeEllipse:
		return "ellipse"
	case ShapeLinearPolygon:
		return "linearPolygon"
	case ShapeRadialPolygon:
		return "radialPolygon"
	default:
		return "none"
	}
}

// Shapes lists every geometry present in l.
func (l *Location) Shapes() []LocationShape {
	if l == nil {
		return nil
	}
	var out []LocationShape
	if l.Ellipse != nil {
		out = append(out, ShapeEllipse)
	}
	if l.LinearPolygon != nil {
		out = append(out, ShapeLinearPolygon)
	}
	if l.RadialPolygon != nil {
		out = append(out, ShapeRadialPolygon)
	}
	return out
}

// Shape returns the single geometry of l. ok is false when l carries zero or
// several geometries.
func (l *Location) Shape() (shape LocationShape, ok bool) {
	shapes := l.Shapes()
	if len(shapes) != 1 {
		return ShapeNone, false
	}
	return shapes[0], true
}

func (l *Location) validate() *ProtocolError {
	shape, ok := l.Shape()
	if !ok {
		return GeneralFailure()
	}
	switch shape {
	case ShapeEllipse:
		return l.Ellipse.Center.validate()
	case ShapeLinearPolygon:
		if l.LinearPolygon.OuterBoundary == nil {
			return MissingParam("outerBoundary")
		}
		for i := range l.LinearPolygon.OuterBoundary {
			if perr := l.LinearPolygon.OuterBoundary[i].validate(); perr != nil {
				return perr
			}
		}
	case ShapeRadialPolygon:
		if perr := l.RadialPolygon.Center.validate(); perr != nil {
			return perr
		}
		if l.RadialPolygon.OuterBoundary == nil {
			return MissingParam("outerBoundary")
		}
		for _, v := range l.RadialPolygon.OuterBoundary {
			if v.Length == nil {
				return MissingParam("length")
			}
			if v.Angle == nil {
				return MissingParam("angle")
			}
		}
	}
	return nil
}

func (p *Point) validate() *ProtocolError {
	if p == nil {
		return MissingParam("center")
	}
	if p.Latitude == nil {
		return MissingParam("latitude")
	}
	if p.Longitude == nil {
		return MissingParam("longitude")
	}
	return nil
}
