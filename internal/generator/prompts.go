package generator

import (
	"fmt"
	"strings"

	"github.com/rueda-la-rola/leadgen/internal/model"
)

// demoPromptTemplate produces a full landing page for a business with
// no usable web presence. The image rules pin generated pages to hosts
// that actually resolve; source.unsplash.com is broken and must not
// appear.
const demoPromptTemplate = `Act as a world-class web designer (Awwwards level).
Create a stunning one-pager landing page for a local business called "%s" located at "%s".

### IMAGE RULES (CRITICAL):
Do NOT use 'source.unsplash.com' (it is broken).
Use EXACTLY these formats for images:
- Hero background: "https://loremflickr.com/1200/800/business,modern" (or swap 'business' for the client's trade, e.g. 'food', 'gym', 'dentist').
- Feature images: "https://loremflickr.com/800/600/work" or "https://picsum.photos/seed/%s/800/600".
- ALWAYS set a fallback 'background-color' (e.g. bg-gray-900) in case an image is slow to load.

### REQUIRED STRUCTURE (5 SECTIONS):
1. **Hero section:** giant headline, persuasive subtitle, call-to-action button, and a background photo with a dark overlay so the text stays readable.
2. **About us:** a short inspiring story.
3. **Our services / menu:** a grid of 3 cards with icons or photos showing what they sell.
4. **Testimonials:** 2 or 3 realistic (but fictional) customer reviews with star ratings.
5. **Footer:** real address, a visually simulated map, opening hours and contact details.

### VISUAL STYLE:
- Use **Tailwind CSS** via CDN.
- Typography: Google Fonts (Inter, Playfair Display or Montserrat).
- Spacing: generous padding (py-20) for a high-end look.
- Shadows: 'shadow-xl' on cards.
- Borders: 'rounded-2xl' for a modern look.

RETURN ONLY PURE HTML5 CODE. No markdown (` + "```" + `).`

// proposalPromptTemplate produces a commercial proposal flyer for a
// business that already has some web presence.
const proposalPromptTemplate = `Act as the commercial director of 'Rueda La Rola Media'. Write a strategic commercial proposal for "%s".
Current website: "%s".

Goal: sell digitalization + print services.
Clean HTML structure with Tailwind CSS (classes: p-8 max-w-4xl mx-auto bg-white shadow-lg rounded-xl).

Sections:
1. **Diagnosis:** what are they losing today by not having a strong presence?
2. **The solution (Rueda La Rola pack):** modern website + QR menu + business cards.
3. **Investment:** a simple pricing table (Start plan vs Pro plan).
4. **CTA:** a WhatsApp button to close the deal.

RETURN ONLY THE BODY HTML CONTENT.`

// buildPrompt fills the template for the requested asset type. The
// place's details are interpolated verbatim.
func buildPrompt(req Request) string {
	switch req.Type {
	case model.AssetProposal:
		website := "None"
		if req.Website != nil && *req.Website != "" {
			website = *req.Website
		}
		return fmt.Sprintf(proposalPromptTemplate, req.PlaceName, website)
	default:
		seed := strings.ReplaceAll(req.PlaceName, " ", "")
		return fmt.Sprintf(demoPromptTemplate, req.PlaceName, req.PlaceAddress, seed)
	}
}

// stripFences removes markdown code-fence markers the model sometimes
// adds despite being told not to.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```html", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
