package arena

import "math"

// updateSegments drags the segment chain behind the head. The head slot
// always mirrors the position; every later segment chases its predecessor
// and never trails more than SegmentSpacing behind it. The chain grows as
// length grows and never shrinks.
func (p *playerState) updateSegments() {
	if len(p.Segments) == 0 {
		p.Segments = append(p.Segments, p.Pos)
	}
	p.Segments[0] = p.Pos
	for i := 1; i < len(p.Segments); i++ {
		lead := p.Segments[i-1]
		seg := p.Segments[i]
		dx := seg.X - lead.X
		dy := seg.Y - lead.Y
		dist := math.Hypot(dx, dy)
		if dist > SegmentSpacing {
			scale := SegmentSpacing / dist
			p.Segments[i] = Vec{X: lead.X + dx*scale, Y: lead.Y + dy*scale}
		}
	}
	p.growSegments()
}

// growSegments appends tail copies until the chain count matches
// floor(length). Called on movement and again after item consumption, so
// a snapshot taken at the end of an eating tick never reports a chain
// shorter than the length it carries.
func (p *playerState) growSegments() {
	for len(p.Segments) < int(p.Length) {
		tail := p.Segments[len(p.Segments)-1]
		p.Segments = append(p.Segments, tail)
	}
}
