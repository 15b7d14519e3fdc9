// Package compose builds the certificate document from a verification
// record and its resolved assets. Compose is pure: the same input always
// yields the same tree.
package compose

import (
	"fmt"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MNasiifu/automobile-association-sub000/permit"
)

// DateLayout is the certificate date format, e.g. "15 January 2024".
const DateLayout = "2 January 2006"

// VerifiedMarker is printed in every footer.
const VerifiedMarker = "DIGITALLY VERIFIED"

// Banner titles per state.
const (
	TitleValid       = "VERIFIED & VALID"
	TitleExpiresSoon = "VALID - EXPIRES SOON"
	TitleExpired     = "EXPIRED"
	TitleNotFound    = "RECORD NOT FOUND"
)

// Input is everything Compose needs. RenderedAt is supplied by the caller.
type Input struct {
	Record     permit.VerificationRecord
	Status     permit.StatusClassification
	Logo       permit.ResolvedAsset
	Photo      *permit.ResolvedAsset
	RenderedAt string
	Org        Organization
}

// FormatDate formats t the way the certificate prints dates.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StatusClass returns the banner class for state. Unknown states are
// treated as not found.
func StatusClass(state permit.State) string {
	switch state {
	case permit.StateValid:
		return "status-valid"
	case permit.StateExpiresSoon:
		return "status-expires-soon"
	case permit.StateExpired:
		return "status-expired"
	default:
		return "status-not-found"
	}
}

// StatusTitle returns the banner title for state.
func StatusTitle(state permit.State) string {
	switch state {
	case permit.StateValid:
		return TitleValid
	case permit.StateExpiresSoon:
		return TitleExpiresSoon
	case permit.StateExpired:
		return TitleExpired
	default:
		return TitleNotFound
	}
}

// Compose builds the certificate document.
func Compose(in Input) *Document {
	org := in.Org.withDefaults()

	root := element(atom.Div, "certificate",
		header(org, in.Logo),
		statusBanner(in.Status),
	)
	setAttr(root, "id", RootID)

	if in.Record.Found {
		root.AppendChild(holderDetails(in.Record, in.Photo))
		root.AppendChild(validityDetails(in.Record, in.Status))
		root.AppendChild(recognition(org))
	} else {
		root.AppendChild(notFound(in.Record.ID, org))
	}
	root.AppendChild(footer(org, in.RenderedAt))

	return &Document{
		Title: "IDP Verification - " + in.Record.ID,
		Body:  element(atom.Div, "certificate-page", root),
	}
}

func header(org Organization, logo permit.ResolvedAsset) *html.Node {
	img := element(atom.Img, "logo")
	setAttr(img, "src", logo.DataURI)
	setAttr(img, "alt", org.ShortName+" logo")
	setAttr(img, "data-asset", "logo")

	identity := element(atom.Div, "org",
		element(atom.H1, "org-name", text(org.Name)),
		element(atom.P, "org-tagline", text(org.Tagline)),
		element(atom.Div, "brand-bar"),
		element(atom.P, "doc-title", text("International Driving Permit Verification Certificate")),
	)
	return region("header", element(atom.Div, "header", img, identity))
}

func statusBanner(status permit.StatusClassification) *html.Node {
	return region("status", element(atom.Div, "status-banner "+StatusClass(status.State),
		element(atom.H2, "status-title", text(StatusTitle(status.State))),
		element(atom.P, "status-message", text(status.Message)),
	))
}

func holderDetails(rec permit.VerificationRecord, photo *permit.ResolvedAsset) *html.Node {
	slot := element(atom.Div, "photo-slot")
	if photo != nil && photo.DataURI != "" {
		img := element(atom.Img, "photo")
		setAttr(img, "src", photo.DataURI)
		setAttr(img, "alt", "Permit holder photograph")
		setAttr(img, "data-asset", "photo")
		slot.AppendChild(img)
	} else {
		slot.AppendChild(element(atom.Div, "photo-placeholder", text("NO PHOTO ON FILE")))
	}

	details := element(atom.Div, "holder",
		element(atom.H3, "section-title", text("Permit Holder")),
		table(
			row("Full Name", rec.FullName()),
			row("Permit Number", rec.ID),
			row("Passport Number", rec.PassportNumber),
			row("Permitted Classes", rec.PermittedClasses),
		),
	)
	return region("holder-details", element(atom.Div, "section media-row", slot, details))
}

func validityDetails(rec permit.VerificationRecord, status permit.StatusClassification) *html.Node {
	msg := element(atom.Td, "status-text", text(status.Message))
	if status.DisplayColor != "" {
		setAttr(msg, "style", "color: "+status.DisplayColor)
	}
	statusRow := element(atom.Tr, "", labelCell("Status"), msg)

	return region("validity-details", element(atom.Div, "section",
		element(atom.H3, "section-title", text("Validity")),
		table(
			row("Date of Issue", FormatDate(rec.IssueDate)),
			row("Date of Expiry", FormatDate(rec.ExpiryDate)),
			statusRow,
		),
	))
}

func recognition(org Organization) *html.Node {
	src := fmt.Sprintf("**International recognition.** This permit is issued by %s under the "+
		"United Nations Conventions on Road Traffic (Geneva 1949, Vienna 1968). It is valid in "+
		"contracting states only when carried together with the holder's national driving licence.",
		org.Name)
	return region("recognition", element(atom.Div, "note", markdownNodes(src)...))
}

func notFound(id string, org Organization) *html.Node {
	msg := element(atom.P, "",
		text("No International Driving Permit with number "),
		element(atom.Strong, "", text(id)),
		text(fmt.Sprintf(" exists in the register. Check the number and try again, or contact %s.", org.ShortName)),
	)
	return region("not-found", element(atom.Div, "section not-found",
		element(atom.H3, "section-title", text("No Record Found")),
		msg,
	))
}

func footer(org Organization, renderedAt string) *html.Node {
	contact := fmt.Sprintf("**%s**  \n%s  \nTel: %s | Email: %s | %s",
		org.Name, org.Address, org.Phone, org.Email, org.Website)

	f := element(atom.Div, "footer", markdownNodes(contact)...)
	f.AppendChild(element(atom.P, "verified-at", text("Verified on "+renderedAt)))
	f.AppendChild(element(atom.P, "verified-mark", text(VerifiedMarker)))
	return region("footer", f)
}

func table(rows ...*html.Node) *html.Node {
	return element(atom.Table, "details", element(atom.Tbody, "", rows...))
}

func row(label, value string) *html.Node {
	return element(atom.Tr, "", labelCell(label), element(atom.Td, "", text(value)))
}

func labelCell(label string) *html.Node {
	th := element(atom.Th, "label", text(label))
	setAttr(th, "width", "38%")
	return th
}

func region(name string, n *html.Node) *html.Node {
	setAttr(n, "data-region", name)
	return n
}

func element(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		setAttr(n, "class", class)
	}
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
