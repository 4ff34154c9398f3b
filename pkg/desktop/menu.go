package desktop

import (
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/usecellar/cellar/pkg/errors"
)

// menuName is the submenu cellar entries are grouped under.
const menuName = "Cellar"

// UpdateMenu adds an Include/Filename element for the entry to the
// cellar applications menu file, creating the file on first use. An
// entry already listed is left alone. The file is replaced atomically.
func UpdateMenu(menuPath, entryFileName string) error {
	doc := etree.NewDocument()

	if _, err := os.Stat(menuPath); err == nil {
		if err := doc.ReadFromFile(menuPath); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot parse menu file %s", menuPath)
		}
	}

	root := doc.SelectElement("Menu")
	if root == nil {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		root = doc.CreateElement("Menu")
		root.CreateElement("Name").SetText("Applications")
	}

	sub := findSubMenu(root)
	if sub == nil {
		sub = root.CreateElement("Menu")
		sub.CreateElement("Name").SetText(menuName)
	}

	include := sub.SelectElement("Include")
	if include == nil {
		include = sub.CreateElement("Include")
	}

	for _, filename := range include.SelectElements("Filename") {
		if filename.Text() == entryFileName {
			return nil
		}
	}
	include.CreateElement("Filename").SetText(entryFileName)

	return writeMenu(doc, menuPath)
}

func findSubMenu(root *etree.Element) *etree.Element {
	for _, menu := range root.SelectElements("Menu") {
		if name := menu.SelectElement("Name"); name != nil && name.Text() == menuName {
			return menu
		}
	}
	return nil
}

func writeMenu(doc *etree.Document, menuPath string) error {
	if err := os.MkdirAll(filepath.Dir(menuPath), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(menuPath))
	}

	doc.Indent(2)
	tmpPath := menuPath + ".tmp"
	if err := doc.WriteToFile(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write menu file %s", menuPath)
	}
	if err := os.Rename(tmpPath, menuPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace menu file %s", menuPath)
	}
	return nil
}
