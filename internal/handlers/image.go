package handlers

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docbelt/internal/imgops"
	u "docbelt/internal/utils"
)

// outputExts are the formats the service will encode.
var outputExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

// imageOp loads the upload, applies fn and writes the result with the same
// format as the input. quality applies to JPEG output.
func (svc *Service) imageOp(c *fiber.Ctx, suffix string, quality int, fn func(image.Image) (image.Image, error)) error {
	start := time.Now()
	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	img, err := imgops.Open(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	result, err := fn(img)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return fe
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ext := strings.ToLower(filepath.Ext(in))
	if !outputExts[ext] {
		ext = ".png"
	}
	out := svc.outputPath(baseStem(in)+suffix, ext)
	if err := imgops.Save(result, out, quality); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	res, rerr := svc.fileResult(out, start, fiber.Map{
		"width":  result.Bounds().Dx(),
		"height": result.Bounds().Dy(),
	})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleImageResize resizes an image with fit, fill, exact or scale
// semantics.
func (svc *Service) HandleImageResize(c *fiber.Ctx) error {
	opts := imgops.ResizeOptions{
		Width:  formInt(c.FormValue("width"), 0),
		Height: formInt(c.FormValue("height"), 0),
		Mode:   imgops.ResizeMode(c.FormValue("mode", "fit")),
		Scale:  formFloat(c.FormValue("scale"), 0),
	}
	return svc.imageOp(c, "_resized", 0, func(img image.Image) (image.Image, error) {
		return imgops.Resize(img, opts)
	})
}

// HandleImageCrop cuts a rectangle out of the image.
func (svc *Service) HandleImageCrop(c *fiber.Ctx) error {
	x := formInt(c.FormValue("x"), 0)
	y := formInt(c.FormValue("y"), 0)
	w := formInt(c.FormValue("width"), 0)
	h := formInt(c.FormValue("height"), 0)
	return svc.imageOp(c, "_cropped", 0, func(img image.Image) (image.Image, error) {
		return imgops.Crop(img, x, y, w, h)
	})
}

// HandleImageRotate rotates the image clockwise by an arbitrary angle.
func (svc *Service) HandleImageRotate(c *fiber.Ctx) error {
	angle := formFloat(c.FormValue("angle"), 90)
	expand := formBool(c.FormValue("expand"), true)
	return svc.imageOp(c, "_rotated", 0, func(img image.Image) (image.Image, error) {
		return imgops.Rotate(img, angle, expand), nil
	})
}

// HandleImageFlip mirrors the image horizontally or vertically.
func (svc *Service) HandleImageFlip(c *fiber.Ctx) error {
	direction := c.FormValue("direction", "horizontal")
	return svc.imageOp(c, "_flipped", 0, func(img image.Image) (image.Image, error) {
		return imgops.Flip(img, direction)
	})
}

// HandleImageCompress re-encodes the image as JPEG at the given quality.
func (svc *Service) HandleImageCompress(c *fiber.Ctx) error {
	start := time.Now()
	quality := formInt(c.FormValue("quality"), 85)
	if quality < 1 || quality > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "quality must be between 1 and 100")
	}

	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	img, err := imgops.Open(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	out := svc.outputPath(baseStem(in)+"_compressed", ".jpg")
	if err := imgops.Save(img, out, quality); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{"quality": quality})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleImageConvert re-encodes the image into another format.
func (svc *Service) HandleImageConvert(c *fiber.Ctx) error {
	start := time.Now()
	format := strings.ToLower(strings.TrimPrefix(c.FormValue("format"), "."))
	if format == "" {
		return fiber.NewError(fiber.StatusBadRequest, "format is required")
	}
	ext := "." + format
	if format == "jpg" {
		ext = ".jpg"
	}
	if !outputExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("unsupported output format %q", format))
	}

	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	img, err := imgops.Open(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	quality := formInt(c.FormValue("quality"), 0)
	out := svc.outputPath(baseStem(in), ext)
	if err := imgops.Save(img, out, quality); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{"format": format})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleImageAdjust applies brightness, contrast, saturation and sharpness
// factors where 1.0 means unchanged.
func (svc *Service) HandleImageAdjust(c *fiber.Ctx) error {
	opts := imgops.AdjustOptions{
		Brightness: formFloat(c.FormValue("brightness"), 1),
		Contrast:   formFloat(c.FormValue("contrast"), 1),
		Saturation: formFloat(c.FormValue("saturation"), 1),
		Sharpness:  formFloat(c.FormValue("sharpness"), 1),
	}
	return svc.imageOp(c, "_adjusted", 0, func(img image.Image) (image.Image, error) {
		return imgops.Adjust(img, opts), nil
	})
}

// HandleImageBlur applies a gaussian blur.
func (svc *Service) HandleImageBlur(c *fiber.Ctx) error {
	radius := formFloat(c.FormValue("radius"), 2)
	return svc.imageOp(c, "_blurred", 0, func(img image.Image) (image.Image, error) {
		return imgops.Blur(img, radius)
	})
}

// HandleImageSharpen sharpens the image.
func (svc *Service) HandleImageSharpen(c *fiber.Ctx) error {
	amount := formFloat(c.FormValue("amount"), 1)
	return svc.imageOp(c, "_sharpened", 0, func(img image.Image) (image.Image, error) {
		return imgops.Sharpen(img, amount)
	})
}

// HandleImageGrayscale converts the image to grayscale.
func (svc *Service) HandleImageGrayscale(c *fiber.Ctx) error {
	return svc.imageOp(c, "_grayscale", 0, func(img image.Image) (image.Image, error) {
		return imgops.Grayscale(img), nil
	})
}

// HandleImageInfo returns the dimensions and format of an uploaded image.
func (svc *Service) HandleImageInfo(c *fiber.Ctx) error {
	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	info, err := imgops.ReadInfo(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "info": info})
}

// HandlePassportPhoto crops a portrait to a country's passport photo format
// at print resolution.
func (svc *Service) HandlePassportPhoto(c *fiber.Ctx) error {
	country := strings.ToLower(c.FormValue("country", "us"))
	return svc.imageOp(c, "_passport_"+country, 95, func(img image.Image) (image.Image, error) {
		out, err := imgops.PassportPhoto(img, country)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return out, nil
	})
}

// HandlePassportSheet tiles passport photos onto printable paper.
func (svc *Service) HandlePassportSheet(c *fiber.Ctx) error {
	start := time.Now()
	country := strings.ToLower(c.FormValue("country", "us"))
	paper := strings.ToLower(c.FormValue("paper", "4x6"))

	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	img, err := imgops.Open(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	sheet, count, err := imgops.PassportSheet(img, country, paper)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	out := svc.outputPath(baseStem(in)+"_sheet_"+paper, ".jpg")
	if err := imgops.Save(sheet, out, 95); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{
		"photo_count": count,
		"country":     country,
		"paper":       paper,
	})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandlePassportSizes lists the supported country presets.
func (svc *Service) HandlePassportSizes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"countries": imgops.PassportCountries(),
		"sizes":     imgops.PassportSizes(),
	})
}

// HandleRemoveBackground keys out the backdrop, leaving transparency.
func (svc *Service) HandleRemoveBackground(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	img, err := imgops.Open(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	cut := imgops.RemoveBackground(img)
	// Transparency needs PNG regardless of the input format.
	out := svc.outputPath(baseStem(in)+"_nobg", ".png")
	if err := imgops.Save(cut, out, 0); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleReplaceBackground keys out the backdrop and fills it with a solid
// color.
func (svc *Service) HandleReplaceBackground(c *fiber.Ctx) error {
	color := c.FormValue("color", "#ffffff")
	return svc.imageOp(c, "_bg", 95, func(img image.Image) (image.Image, error) {
		out, err := imgops.ReplaceBackground(img, color)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}
