package oracle

import (
	"fmt"
	"strings"
)

// GarmentType hints let one executor cover the prompt variants that
// would otherwise need per-type call sites.
type GarmentType string

const (
	GarmentAuto        GarmentType = "auto"
	GarmentShortSleeve GarmentType = "short-sleeve"
	GarmentLongSleeve  GarmentType = "long-sleeve"
	GarmentSleeveless  GarmentType = "sleeveless"
	GarmentDress       GarmentType = "dress"
	GarmentJacket      GarmentType = "jacket"
)

func (g GarmentType) Valid() bool {
	switch g {
	case GarmentAuto, GarmentShortSleeve, GarmentLongSleeve, GarmentSleeveless, GarmentDress, GarmentJacket:
		return true
	}
	return false
}

func (g GarmentType) hint() string {
	switch g {
	case GarmentShortSleeve:
		return "SHORT-SLEEVE: show bare arms below the sleeve edge."
	case GarmentLongSleeve:
		return "LONG-SLEEVE: cover the arms completely."
	case GarmentSleeveless:
		return "SLEEVELESS: show bare shoulders and arms."
	default:
		return ""
	}
}

// TryOnPrompt assembles the generation prompt for a single try-on
// call. The first input image is the person, the second the garment.
func TryOnPrompt(garmentType GarmentType, extraInstructions string) string {
	var b strings.Builder
	b.WriteString(`Create a photorealistic virtual try-on image showing the person from the first image wearing the garment from the second image.

Requirements:
1. Preserve the person's exact pose, body proportions and facial features.
2. Completely replace any existing clothing with the new garment.
3. Apply the garment with a realistic fit: natural wrinkles, shadows and draping.
4. Handle sleeve-length transitions naturally (show skin or extend fabric as needed).
5. Preserve the background from the person image without distortion.
6. Match skin tones and lighting; studio-quality photographic result.
7. Output in 9:16 portrait aspect ratio.`)

	if hint := garmentType.hint(); hint != "" {
		b.WriteString("\n\nGarment note: ")
		b.WriteString(hint)
	}
	if extraInstructions != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(extraInstructions)
	}
	return b.String()
}

// ViewPrompt builds the prompt that derives a side or back view from
// a single front-view image.
func ViewPrompt(view string) string {
	var angle string
	switch view {
	case "side":
		angle = "a side profile view (90 degrees), facing left or right with a clear profile of face, body and clothing"
	case "back":
		angle = "a back view (180 degrees), facing completely away from the camera, showing the back of the head, hair and garment"
	default:
		return ""
	}
	return fmt.Sprintf(`Generate a photorealistic %s of this person.

Keep the exact same person: identical face, hair, body, clothing and colors. Same proportions, posture, background style and lighting. Studio-quality result in 9:16 portrait aspect ratio.`, angle)
}

// EditPrompt wraps user edit instructions for revising an existing
// generated image. The first input image is the one being edited; any
// further image is reference material.
func EditPrompt(instructions string) string {
	return fmt.Sprintf(`Edit the first image as follows: %s

Apply only the requested change. Keep the person's identity, pose, body proportions, background and lighting exactly as they are; leave everything not named in the request untouched. Photorealistic result in the same aspect ratio as the input.`, instructions)
}

const reviewInstruction = `You are reviewing a virtual try-on result image. Judge it against the user's original request and any prior feedback. Answer every boolean strictly; list concrete problems in issues and concrete, actionable fixes in suggestions.`

const decideInstruction = `You control a bounded refinement loop for virtual try-on generation. Given the latest review and the iteration number, decide whether another refinement pass is worth running. Stop when the result adheres to the request with no significant issues.`

// VideoStyle names a transition style for the showcase video.
var videoStyles = map[string]string{
	"smooth_rotation": "Create a smooth 360-degree rotation video using these reference images as keyframes: start at the front view, rotate through the side view (90 degrees) and the back view (180 degrees), and complete the rotation back to front. Ultra-smooth camera movement with seamless transitions.",
	"dynamic":         "Create a dynamic fashion showcase from these reference images, transitioning between front, side and back views with energetic but fluid camera movement.",
	"elegant":         "Create an elegant, slow-motion fashion showcase from these reference images, with graceful transitions between front, side and back views and a luxury photography aesthetic.",
	"quick":           "Create a fast-paced fashion showcase from these reference images, with quick, smooth transitions between front, side and back views.",
}

// VideoPrompt maps a transition style to the Veo prompt, falling back
// to smooth_rotation for unknown styles.
func VideoPrompt(style string) string {
	p, ok := videoStyles[style]
	if !ok {
		p = videoStyles["smooth_rotation"]
	}
	return p + " Professional studio fashion showcase, premium lighting, 1080p, clean background, photorealistic rendering with smooth motion."
}

// VideoStyles returns the known style names.
func VideoStyles() []string {
	return []string{"smooth_rotation", "dynamic", "elegant", "quick"}
}
